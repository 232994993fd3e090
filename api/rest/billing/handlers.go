package billing

import (
	stderrors "errors"
	"io"
	"net/http"

	"codeberg.org/healthconsultant/server/internal/billing"
	"codeberg.org/healthconsultant/server/internal/errors"
	"codeberg.org/healthconsultant/server/internal/logger"
	"github.com/gin-gonic/gin"
)

// HandleWebhook godoc
// @Summary Receive billing provider events
// @Description Verifies the Stripe-Signature header and applies subscription changes to the customer's plan
// @Tags billing
// @Accept json
// @Produce json
// @Success 200 {object} billing.Outcome
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/billing/webhook [post]
func HandleWebhook(verifier *billing.Verifier, svc *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
		if err != nil {
			errors.BadRequest(c, "failed to read webhook body", err)
			return
		}

		if len(payload) > maxWebhookBytes {
			errors.BadRequest(c, "webhook body too large", nil)
			return
		}

		if err := verifier.Verify(payload, c.GetHeader(signatureHeader)); err != nil {
			logger.FromContext(c.Request.Context()).Warn("webhook signature rejected", "error", err)
			errors.InvalidWebhook(c, err)
			return
		}

		outcome, err := svc.HandleEvent(c.Request.Context(), payload)
		if stderrors.Is(err, billing.ErrInvalidPayload) {
			errors.InvalidWebhook(c, err)
			return
		}

		if err != nil {
			// non-2xx makes the provider retry later
			errors.InternalError(c, "failed to apply billing event", err)
			return
		}

		logger.FromContext(c.Request.Context()).Info("billing event processed",
			"event_id", outcome.EventID,
			"event_type", outcome.EventType,
			"action", outcome.Action,
			"reason", outcome.Reason,
			"user_id", outcome.UserID,
			"plan", outcome.Plan,
		)

		c.JSON(http.StatusOK, outcome)
	}
}

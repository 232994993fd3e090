package usage

import (
	"net/http"

	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/entitlement"
	"codeberg.org/healthconsultant/server/internal/errors"
	"codeberg.org/healthconsultant/server/internal/metrics"
	"github.com/gin-gonic/gin"
)

// GetInteractionLimit godoc
// @Summary Get monthly interaction allowance
// @Description Returns interactions used this month and what the caller's plan allows
// @Tags usage
// @Produce json
// @Success 200 {object} InteractionLimitResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/usage/interaction-limit [get]
// @Security BearerAuth
func GetInteractionLimit(svc *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		decision, err := svc.CanInteract(c.Request.Context(), userID)
		if err != nil {
			errors.InternalError(c, "failed to check interaction limit", err)
			return
		}

		c.JSON(http.StatusOK, InteractionLimitResponse{
			CurrentMonth: decision.Used,
			Month:        decision.Month,
			Limit:        decision.Limit,
			Remaining:    decision.Remaining,
			HasUnlimited: decision.Unlimited(),
		})
	}
}

// CheckInteraction godoc
// @Summary Admit and record one interaction
// @Description Records the interaction when the monthly allowance permits it, otherwise returns 429 with an upgrade prompt
// @Tags usage
// @Accept json
// @Produce json
// @Param request body CheckInteractionRequest true "Interaction"
// @Success 200 {object} CheckInteractionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} QuotaExceededResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/usage/interaction-limit [post]
// @Security BearerAuth
func CheckInteraction(svc *entitlement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.GetIdentity(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		var req CheckInteractionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		interactionType, err := entitlement.ParseInteractionType(req.InteractionType)
		if err != nil {
			errors.BadRequest(c, "unknown interaction type", err)
			return
		}

		prompts, err := promptUnits(req.Prompts)
		if err != nil {
			errors.BadRequest(c, "prompts must be at least 1", err)
			return
		}

		decision, err := svc.RecordIfAllowed(c.Request.Context(), identity, interactionType, prompts)
		if err != nil {
			errors.InternalError(c, "failed to record interaction", err)
			return
		}

		if !decision.Allowed {
			c.JSON(http.StatusTooManyRequests, QuotaExceededResponse{
				CanInteract:           false,
				RemainingInteractions: decision.Remaining,
				Limit:                 decision.Limit,
				Message:               errors.MessageUpgradePrompt,
			})
			return
		}

		c.JSON(http.StatusOK, CheckInteractionResponse{
			CanInteract:           true,
			RemainingInteractions: decision.Remaining,
			Limit:                 decision.Limit,
			CurrentMonth:          decision.Used,
			HasUnlimited:          decision.Unlimited(),
		})
	}
}

// RecordUsage godoc
// @Summary Record one metered interaction
// @Description Records an interaction that was already performed; no entitlement check
// @Tags usage
// @Accept json
// @Produce json
// @Param request body RecordRequest false "Prompt units"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/usage/record [post]
// @Security BearerAuth
func RecordUsage(ledger *usage.Ledger, failures FailureObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.GetIdentity(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		var req RecordRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				errors.ValidationError(c, err)
				return
			}
		}

		prompts, err := promptUnits(req.Prompts)
		if err != nil {
			errors.BadRequest(c, "prompts must be at least 1", err)
			return
		}

		if _, err := ledger.Record(c.Request.Context(), identity, prompts); err != nil {
			if failures != nil {
				failures.RecordFailed(metrics.SourceRecordEndpoint)
			}

			errors.InternalError(c, "failed to record usage", err)
			return
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "usage recorded"})
	}
}

func promptUnits(prompts *int) (int, error) {
	if prompts == nil {
		return 1, nil
	}

	if *prompts < 1 {
		return 0, usage.ErrInvalidPromptUnits
	}

	return *prompts, nil
}

package consult

import (
	stderrors "errors"
	"net/http"

	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/consult"
	"codeberg.org/healthconsultant/server/internal/entitlement"
	"codeberg.org/healthconsultant/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// Consult godoc
// @Summary Ask the health assistant
// @Description Runs one metered consultation; images count as extra prompt units
// @Tags consultations
// @Accept json
// @Produce json
// @Param request body ConsultRequest true "Question, prior turns and optional image urls"
// @Success 200 {object} ConsultResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/consultations [post]
// @Security BearerAuth
func Consult(svc *consult.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.GetIdentity(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		var req ConsultRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errors.ValidationError(c, err)
			return
		}

		history := make([]consult.Turn, 0, len(req.History))
		for _, entry := range req.History {
			history = append(history, consult.Turn{Role: entry.Role, Content: entry.Content})
		}

		result, err := svc.Consult(c.Request.Context(), identity, consult.Request{
			Message:   req.Message,
			History:   history,
			ImageURLs: req.ImageURLs,
		})

		switch {
		case err == nil:
		case stderrors.Is(err, entitlement.ErrQuotaExceeded):
			errors.QuotaExceeded(c)
			return
		case isInputError(err):
			errors.BadRequest(c, err.Error(), nil)
			return
		default:
			errors.InternalError(c, "consultation failed", err)
			return
		}

		c.JSON(http.StatusOK, ConsultResponse{
			Reply:                 result.Reply,
			Model:                 result.Model,
			RemainingInteractions: result.Remaining,
			HasUnlimited:          result.Unlimited,
		})
	}
}

func isInputError(err error) bool {
	for _, target := range []error{
		consult.ErrEmptyMessage,
		consult.ErrMessageTooLong,
		consult.ErrTooManyImages,
		consult.ErrInvalidRole,
	} {
		if stderrors.Is(err, target) {
			return true
		}
	}

	return false
}

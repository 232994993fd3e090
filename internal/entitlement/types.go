package entitlement

import (
	"context"
	"errors"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
)

var (
	// neither the account's plan nor the fallback plan exists in the catalog
	ErrPlanNotFound = errors.New("plan not found and no fallback plan configured")

	ErrQuotaExceeded          = errors.New("monthly interaction limit reached")
	ErrInvalidInteractionType = errors.New("unknown interaction type")
)

type InteractionType string

const (
	InteractionChat     InteractionType = "chat"
	InteractionUpload   InteractionType = "upload"
	InteractionAnalysis InteractionType = "analysis"
	InteractionOther    InteractionType = "other"
)

// maps request input to an interaction type; empty means chat
func ParseInteractionType(s string) (InteractionType, error) {
	switch InteractionType(s) {
	case "":
		return InteractionChat, nil
	case InteractionChat, InteractionUpload, InteractionAnalysis, InteractionOther:
		return InteractionType(s), nil
	default:
		return "", ErrInvalidInteractionType
	}
}

// outcome of an entitlement check. Limit and Remaining are nil for unlimited plans
type Decision struct {
	Allowed   bool
	Used      int
	Remaining *int
	Limit     *int
	Month     string
	Plan      string
}

func (d Decision) Unlimited() bool {
	return d.Limit == nil
}

// account lookup the service needs
type Accounts interface {
	FindByID(ctx context.Context, userID string) (*users.User, error)
}

// plan lookups the service needs
type Catalog interface {
	FindByID(ctx context.Context, id string) (*plans.Plan, error)
	FindByTitle(ctx context.Context, title string) (*plans.Plan, error)
}

// receives admission outcomes
type Observer interface {
	InteractionAdmitted(interactionType string)
	InteractionDenied(interactionType string)
}

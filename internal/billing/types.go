package billing

import (
	"context"
	"encoding/json"
	"errors"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

const (
	ActionPlanChanged = "plan_changed"
	ActionIgnored     = "ignored"
)

// accounts the webhook consumer mutates
type Accounts interface {
	FindByStripeCustomer(ctx context.Context, customerID string) (*users.User, error)
	UpdatePlan(ctx context.Context, userID, planID, planTitle string) (*users.User, error)
}

// plan lookups the webhook consumer needs
type Catalog interface {
	FindByStripePrice(ctx context.Context, priceID string) (*plans.Plan, error)
	FindByTitle(ctx context.Context, title string) (*plans.Plan, error)
}

// what handling an event did
type Outcome struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Plan      string `json:"plan,omitempty"`
}

type stripeEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeSubscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

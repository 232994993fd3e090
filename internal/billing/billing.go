package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
)

// applies subscription lifecycle events to account plans
type Service struct {
	accounts      Accounts
	catalog       Catalog
	fallbackTitle string
}

func NewService(accounts Accounts, catalog Catalog, fallbackTitle string) *Service {
	return &Service{accounts: accounts, catalog: catalog, fallbackTitle: fallbackTitle}
}

// handles one verified event payload. events that do not concern a known
// customer or plan are ignored, not failed, so the provider stops retrying
func (s *Service) HandleEvent(ctx context.Context, payload []byte) (*Outcome, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrInvalidPayload)
	}

	outcome := &Outcome{EventID: event.ID, EventType: event.Type}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
	default:
		return ignore(outcome, "event type not handled"), nil
	}

	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, fmt.Errorf("%w: subscription object: %w", ErrInvalidPayload, err)
	}

	if sub.Customer == "" {
		return nil, fmt.Errorf("%w: subscription without customer", ErrInvalidPayload)
	}

	account, err := s.accounts.FindByStripeCustomer(ctx, sub.Customer)
	if errors.Is(err, users.ErrUserNotFound) {
		return ignore(outcome, "unknown customer"), nil
	}

	if err != nil {
		return nil, err
	}

	outcome.UserID = account.ID

	plan, reason, err := s.targetPlan(ctx, event.Type, sub)
	if err != nil {
		return nil, err
	}

	if plan == nil {
		return ignore(outcome, reason), nil
	}

	if _, err := s.accounts.UpdatePlan(ctx, account.ID, plan.ID, plan.Title); err != nil {
		return nil, err
	}

	outcome.Action = ActionPlanChanged
	outcome.Plan = plan.Title

	return outcome, nil
}

// the plan an account should move to, or nil with a reason to leave it alone
func (s *Service) targetPlan(ctx context.Context, eventType string, sub stripeSubscription) (*plans.Plan, string, error) {
	downgrade := eventType == EventSubscriptionDeleted

	if !downgrade {
		switch sub.Status {
		case "active", "trialing":
		case "canceled", "unpaid", "incomplete_expired":
			downgrade = true
		default:
			return nil, "subscription status " + sub.Status, nil
		}
	}

	if downgrade {
		plan, err := s.catalog.FindByTitle(ctx, s.fallbackTitle)
		if errors.Is(err, plans.ErrPlanNotFound) {
			return nil, "fallback plan missing from catalog", nil
		}

		return plan, "", err
	}

	for _, item := range sub.Items.Data {
		plan, err := s.catalog.FindByStripePrice(ctx, item.Price.ID)
		if errors.Is(err, plans.ErrPlanNotFound) {
			continue
		}

		if err != nil {
			return nil, "", err
		}

		return plan, "", nil
	}

	return nil, "no catalog plan for subscription price", nil
}

func ignore(o *Outcome, reason string) *Outcome {
	o.Action = ActionIgnored
	o.Reason = reason

	return o
}

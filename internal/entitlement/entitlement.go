package entitlement

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
)

// decides whether an identity may perform one more metered interaction
type Service struct {
	accounts      Accounts
	catalog       Catalog
	ledger        *usage.Ledger
	fallbackTitle string
	observer      Observer
}

// creates the entitlement service; fallbackTitle names the plan used when an
// account has no matching plan
func NewService(accounts Accounts, catalog Catalog, ledger *usage.Ledger, fallbackTitle string, observer Observer) *Service {
	return &Service{
		accounts:      accounts,
		catalog:       catalog,
		ledger:        ledger,
		fallbackTitle: fallbackTitle,
		observer:      observer,
	}
}

// resolves the plan that governs userID. lookup order: stable plan id,
// then plan title, then the fallback plan. unknown accounts get the fallback
func (s *Service) ResolvePlan(ctx context.Context, userID string) (*plans.Plan, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if account != nil {
		if account.PlanID != nil && *account.PlanID != "" {
			plan, err := s.catalog.FindByID(ctx, *account.PlanID)
			if err == nil {
				return plan, nil
			}

			if !errors.Is(err, plans.ErrPlanNotFound) {
				return nil, fmt.Errorf("failed to load plan: %w", err)
			}
		}

		if account.Plan != "" {
			plan, err := s.catalog.FindByTitle(ctx, account.Plan)
			if err == nil {
				return plan, nil
			}

			if !errors.Is(err, plans.ErrPlanNotFound) {
				return nil, fmt.Errorf("failed to load plan: %w", err)
			}
		}
	}

	plan, err := s.catalog.FindByTitle(ctx, s.fallbackTitle)
	if errors.Is(err, plans.ErrPlanNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrPlanNotFound, s.fallbackTitle)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load fallback plan: %w", err)
	}

	return plan, nil
}

// reports whether userID may interact again this month and how much is left
func (s *Service) CanInteract(ctx context.Context, userID string) (*Decision, error) {
	plan, err := s.ResolvePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	month := s.ledger.CurrentMonth()

	agg, err := s.ledger.MonthlyAggregate(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	return decide(plan, agg.TotalInteractions, month), nil
}

// like CanInteract, but a denial is returned as ErrQuotaExceeded alongside the decision
func (s *Service) Require(ctx context.Context, userID string) (*Decision, error) {
	decision, err := s.CanInteract(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !decision.Allowed {
		return decision, ErrQuotaExceeded
	}

	return decision, nil
}

// admits and records one interaction, or denies without touching the ledger.
// for capped plans the check and the increment happen atomically
func (s *Service) RecordIfAllowed(
	ctx context.Context,
	identity usage.Identity,
	interactionType InteractionType,
	promptUnits int,
) (*Decision, error) {
	interactionType, err := ParseInteractionType(string(interactionType))
	if err != nil {
		return nil, err
	}

	plan, err := s.ResolvePlan(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	if plan.Unlimited() {
		rec, err := s.ledger.Record(ctx, identity, promptUnits)
		if err != nil {
			return nil, err
		}

		// the month of the row just written, not a second clock read
		month, err := usage.MonthOfDate(rec.Date)
		if err != nil {
			return nil, err
		}

		agg, err := s.ledger.MonthlyAggregate(ctx, identity.UserID, month)
		if err != nil {
			return nil, err
		}

		s.admitted(interactionType)

		return decide(plan, agg.TotalInteractions, month), nil
	}

	admission, err := s.ledger.RecordIfBelow(ctx, identity, promptUnits, *plan.InteractionsLimit)
	if err != nil {
		return nil, err
	}

	decision := decide(plan, admission.Used, admission.Month)

	if !admission.Admitted {
		decision.Allowed = false
		s.denied(interactionType)

		return decision, nil
	}

	// the interaction just recorded is the one admitted
	decision.Allowed = true
	s.admitted(interactionType)

	return decision, nil
}

func (s *Service) admitted(t InteractionType) {
	if s.observer != nil {
		s.observer.InteractionAdmitted(string(t))
	}
}

func (s *Service) denied(t InteractionType) {
	if s.observer != nil {
		s.observer.InteractionDenied(string(t))
	}
}

func decide(plan *plans.Plan, used int, month usage.YearMonth) *Decision {
	decision := &Decision{
		Used:  used,
		Month: month.String(),
		Plan:  plan.Title,
	}

	if plan.Unlimited() {
		decision.Allowed = true
		return decision
	}

	limit := *plan.InteractionsLimit
	remaining := max(limit-used, 0)

	decision.Allowed = used < limit
	decision.Limit = &limit
	decision.Remaining = &remaining

	return decision
}

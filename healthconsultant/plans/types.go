package plans

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPlanNotFound = errors.New("plan not found")

// a subscription tier; a nil InteractionsLimit means unlimited
type Plan struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	InteractionsLimit *int   `json:"interactionsLimit"`
	StripePriceID     string `json:"stripePriceId,omitempty"`
}

func (p Plan) Unlimited() bool {
	return p.InteractionsLimit == nil
}

// where the catalog loads plans from
type Source interface {
	ListPlans(ctx context.Context) ([]Plan, error)
}

// handles plan database operations
type Repository struct {
	db *pgxpool.Pool
}

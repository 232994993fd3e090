package plans

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const queryListPlans = `
	SELECT id, title, interactions_limit, COALESCE(stripe_price_id, '')
	FROM plans
	ORDER BY title ASC
`

// creates a new plan repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// lists every plan in the catalog
func (r *Repository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.db.Query(ctx, queryListPlans)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	defer rows.Close()

	plans := []Plan{}

	for rows.Next() {
		var p Plan

		if err := rows.Scan(&p.ID, &p.Title, &p.InteractionsLimit, &p.StripePriceID); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		plans = append(plans, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return plans, nil
}

// plan repository on a sqlitedb database
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.db.QueryContext(ctx, queryListPlans)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	defer rows.Close()

	plans := []Plan{}

	for rows.Next() {
		var (
			p     Plan
			limit sql.NullInt64
		)

		if err := rows.Scan(&p.ID, &p.Title, &limit, &p.StripePriceID); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}

		if limit.Valid {
			n := int(limit.Int64)
			p.InteractionsLimit = &n
		}

		plans = append(plans, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return plans, nil
}

package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// creates a new user repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// finds a user by their ID
func (r *Repository) FindByID(ctx context.Context, userID string) (*User, error) {
	return r.findOne(ctx, queryFindByID, userID)
}

// finds the user a Stripe customer belongs to
func (r *Repository) FindByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	return r.findOne(ctx, queryFindByStripeCustomer, customerID)
}

// creates an account row; accounts normally come from the auth provider
func (r *Repository) Create(ctx context.Context, in NewUser) (*User, error) {
	user, err := scanUser(r.db.QueryRow(
		ctx,
		queryCreate,
		in.ID,
		in.Email,
		in.Name,
		in.Plan,
		in.PlanID,
		in.IsAdmin,
		in.StripeCustomerID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// points a user at a plan, keeping the title for display
func (r *Repository) UpdatePlan(ctx context.Context, userID, planID, planTitle string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, queryUpdatePlan, userID, planTitle, planID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update user plan: %w", err)
	}

	return user, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Plan,
		&user.PlanID,
		&user.IsAdmin,
		&user.StripeCustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

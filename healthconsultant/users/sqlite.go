package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
)

// user repository on a sqlitedb database
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	return r.findOne(ctx, sqliteQuery(queryFindByID), userID)
}

func (r *SQLiteRepository) FindByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	return r.findOne(ctx, sqliteQuery(queryFindByStripeCustomer), customerID)
}

func (r *SQLiteRepository) Create(ctx context.Context, in NewUser) (*User, error) {
	now := sqlitedb.FormatTime(time.Now())

	user, err := scanSQLiteUser(r.db.QueryRowContext(
		ctx,
		`INSERT INTO users (id, email, name, plan, plan_id, is_admin, stripe_customer_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		in.ID,
		in.Email,
		in.Name,
		in.Plan,
		in.PlanID,
		in.IsAdmin,
		in.StripeCustomerID,
		now,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *SQLiteRepository) UpdatePlan(ctx context.Context, userID, planID, planTitle string) (*User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(
		ctx,
		`UPDATE users SET plan = ?, plan_id = ?, updated_at = ? WHERE id = ? RETURNING `+userColumns,
		planTitle,
		planID,
		sqlitedb.FormatTime(time.Now()),
		userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update user plan: %w", err)
	}

	return user, nil
}

func (r *SQLiteRepository) findOne(ctx context.Context, query, arg string) (*User, error) {
	user, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// the read queries only differ in placeholder syntax
func sqliteQuery(q string) string {
	return strings.ReplaceAll(q, "$1", "?")
}

func scanSQLiteUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		user                 User
		planID               sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Plan,
		&planID,
		&user.IsAdmin,
		&user.StripeCustomerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if planID.Valid {
		user.PlanID = &planID.String
	}

	if user.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return nil, err
	}

	if user.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}

package users

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// handles user database operations
type Repository struct {
	db *pgxpool.Pool
}

// an account as seen by metering and billing. Plan is the display title;
// PlanID is the stable reference and wins when set
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Plan             string    `json:"plan"`
	PlanID           *string   `json:"planId,omitempty"`
	IsAdmin          bool      `json:"isAdmin"`
	StripeCustomerID string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// contains data for creating an account
type NewUser struct {
	ID               string
	Email            string
	Name             string
	Plan             string
	PlanID           *string
	IsAdmin          bool
	StripeCustomerID string
}

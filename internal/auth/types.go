package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// gin context keys set by Middleware
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextIsAdmin   = "is_admin"
)

const defaultTokenTTL = 7 * 24 * time.Hour

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// represents JWT claims issued by the session provider
type Claims struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// signs and validates HS256 session tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

package auth

import (
	"strings"

	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// validates bearer tokens and adds user info to context
func Middleware(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errors.Unauthorized(c, "authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			errors.Unauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// rejects non-admin callers; must run after Middleware
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			errors.Unauthorized(c, "")
			return
		}

		if !c.GetBool(ContextIsAdmin) {
			errors.Forbidden(c, "admin access required")
			return
		}

		c.Next()
	}
}

// extracts user_id from context after Middleware
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextUserID)
	return userID, userID != ""
}

// the metered identity of the authenticated caller
func GetIdentity(c *gin.Context) (usage.Identity, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return usage.Identity{}, false
	}

	return usage.Identity{UserID: userID, Email: c.GetString(ContextUserEmail)}, true
}

package errors

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/healthconsultant/users"
)

// hides internal error text from clients when true
var production = os.Getenv("ENVIRONMENT") == "production"

// overrides the environment detected at startup (config is authoritative once loaded)
func SetProduction(enabled bool) {
	production = enabled
}

// domain sentinels, matched with errors.Is before any driver or string checks
var sentinels = []struct {
	target    error
	category  string
	sanitized string
}{
	{usage.ErrPersistence, CategoryDatabase, "usage could not be recorded"},
	{usage.ErrRecordNotFound, CategoryNotFound, "usage record not found"},
	{plans.ErrPlanNotFound, CategoryNotFound, "plan not found"},
	{users.ErrUserNotFound, CategoryNotFound, "user not found"},
	{usage.ErrInvalidIdentity, CategoryValidation, "validation failed"},
	{usage.ErrInvalidPromptUnits, CategoryValidation, "validation failed"},
	{usage.ErrInvalidDate, CategoryValidation, "validation failed"},
	{usage.ErrInvalidDateRange, CategoryValidation, "validation failed"},
}

// analyzes an error and returns its category and sanitized message
func classifyError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{CategoryUnknown, ""}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.target) {
			return ErrorInfo{
				category:  s.category,
				sanitized: ternary(production, s.sanitized, err.Error()),
			}
		}
	}

	// database errors (pgx-specific)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ErrorInfo{
			category:  CategoryDatabase,
			sanitized: ternary(production, "database operation failed", err.Error()),
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorInfo{
			category:  CategoryNotFound,
			sanitized: ternary(production, "resource not found", err.Error()),
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorInfo{
			category:  CategoryTimeout,
			sanitized: ternary(production, "request timed out", err.Error()),
		}
	}

	if errors.Is(err, context.Canceled) {
		return ErrorInfo{
			category:  CategoryTimeout,
			sanitized: ternary(production, "request canceled", err.Error()),
		}
	}

	// fallback to string matching for unknown error types
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline") {
		return ErrorInfo{
			category:  CategoryTimeout,
			sanitized: ternary(production, "request timed out", err.Error()),
		}
	}

	if strings.Contains(errMsg, "not found") || strings.Contains(errMsg, "no rows") {
		return ErrorInfo{
			category:  CategoryNotFound,
			sanitized: ternary(production, "resource not found", err.Error()),
		}
	}

	// non-pgx database errors, including the sqlite driver
	if strings.Contains(errMsg, "database") || strings.Contains(errMsg, "sql") ||
		strings.Contains(errMsg, "postgres") || strings.Contains(errMsg, "pgx") {
		return ErrorInfo{
			category:  CategoryDatabase,
			sanitized: ternary(production, "database operation failed", err.Error()),
		}
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dial") {
		return ErrorInfo{
			category:  CategoryNetwork,
			sanitized: ternary(production, "connection error occurred", err.Error()),
		}
	}

	if strings.Contains(errMsg, "validation") || strings.Contains(errMsg, "binding") ||
		strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "required") {
		return ErrorInfo{
			category:  CategoryValidation,
			sanitized: ternary(production, "validation failed", err.Error()),
		}
	}

	if strings.Contains(errMsg, "unauthorized") || strings.Contains(errMsg, "forbidden") ||
		strings.Contains(errMsg, "permission") || strings.Contains(errMsg, "auth") {
		return ErrorInfo{
			category:  CategoryAuth,
			sanitized: ternary(production, "permission denied", err.Error()),
		}
	}

	return ErrorInfo{
		category:  CategoryUnknown,
		sanitized: ternary(production, "an error occurred", err.Error()),
	}
}

// returns the error category used in logs and metrics
func Category(err error) string {
	return classifyError(err).category
}

// sanitizes error messages for production
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}

	return classifyError(err).sanitized
}

func ternary(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}

	return falseVal
}

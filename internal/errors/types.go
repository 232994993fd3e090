package errors

// represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`             // error code (e.g., "unauthorized", "quota_exceeded")
	Message string `json:"message"`           // user-friendly message
	Details string `json:"details,omitempty"` // optional details (sanitized in production)
}

// result of classifying an error for logging and sanitizing
type ErrorInfo struct {
	category  string
	sanitized string
}

// standard error codes
const (
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeValidationError = "validation_error"
	CodeServerError     = "server_error"
	CodeBadRequest      = "bad_request"
	CodeTooManyRequests = "too_many_requests"
	CodeQuotaExceeded   = "quota_exceeded"
	CodeInvalidWebhook  = "invalid_webhook"
)

// error categories for classification
const (
	CategoryDatabase   = "database"
	CategoryNetwork    = "network"
	CategoryValidation = "validation"
	CategoryAuth       = "auth"
	CategoryNotFound   = "not_found"
	CategoryTimeout    = "timeout"
	CategoryUnknown    = "unknown"
)

// shown for every failure the user cannot fix themselves
const MessageTryAgainLater = "something went wrong, please try again later"

// shown when the monthly interaction allowance is used up
const MessageUpgradePrompt = "you have used all interactions included in your plan this month. upgrade your plan to keep going"

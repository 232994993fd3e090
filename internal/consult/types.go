package consult

import (
	"context"
	"errors"

	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/entitlement"
)

const (
	MaxImages         = 4
	MaxHistoryEntries = 20
	MaxMessageLength  = 4000
)

var (
	ErrEmptyMessage     = errors.New("message is required")
	ErrMessageTooLong   = errors.New("message is too long")
	ErrTooManyImages    = errors.New("too many images attached")
	ErrInvalidRole      = errors.New("history entries must be user or assistant messages")
	ErrGenerationFailed = errors.New("consultation could not be generated")
)

// entitlement check run before any work is done
type Gate interface {
	Require(ctx context.Context, userID string) (*entitlement.Decision, error)
}

// secondary usage metering after the reply is produced
type Recorder interface {
	Record(ctx context.Context, identity usage.Identity, promptUnits int) (*usage.Record, error)
}

type FailureObserver interface {
	RecordFailed(source string)
}

type Turn struct {
	Role    string
	Content string
}

type Request struct {
	Message   string
	History   []Turn
	ImageURLs []string
}

type Result struct {
	Reply     string
	Model     string
	Remaining *int
	Unlimited bool
	// false when the usage write failed; the reply is still returned
	Recorded  bool
}

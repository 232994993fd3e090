package usage

import "context"

// durable row storage the ledger needs; implemented by PostgresStore and SQLiteStore
type Store interface {
	FindUsageRow(ctx context.Context, userID, date string) (*Record, error)
	InsertUsageRow(ctx context.Context, rec NewRecord) (*Record, error)
	UpdateUsageRow(ctx context.Context, id string, interactions, prompts int) (*Record, error)
	ListUsageRows(ctx context.Context, filter Filter) ([]Record, error)

	// upserts the (user, date) row and increments it in a single statement
	IncrementUsageRow(ctx context.Context, inc Increment) (*Record, error)

	// increments only while the month's interaction total is below limit;
	// serialized per user so concurrent callers cannot overshoot.
	// returns the row, the month total after the call, and whether it was admitted
	IncrementUsageRowIfBelow(ctx context.Context, inc Increment, month YearMonth, limit int) (*Record, int, bool, error)
}

package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// Store backed by the Supabase Postgres pool
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindUsageRow(ctx context.Context, userID, date string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, queryFindUsageRow, userID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find usage row: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) InsertUsageRow(ctx context.Context, in NewRecord) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(
		ctx,
		queryInsertUsageRow,
		uuid.NewString(),
		in.UserID,
		in.UserEmail,
		in.Date,
		in.Interactions,
		in.Prompts,
	))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return nil, ErrDuplicateRecord
	}

	if err != nil {
		return nil, fmt.Errorf("failed to insert usage row: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) UpdateUsageRow(ctx context.Context, id string, interactions, prompts int) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, queryUpdateUsageRow, id, interactions, prompts))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update usage row: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) ListUsageRows(ctx context.Context, filter Filter) ([]Record, error) {
	rows, err := s.db.Query(
		ctx,
		queryListUsageRows,
		nullIfEmpty(filter.UserID),
		nullIfEmpty(filter.DateFrom),
		nullIfEmpty(filter.DateTo),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage rows: %w", err)
	}

	defer rows.Close()

	records := []Record{}

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}

		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage rows: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) IncrementUsageRow(ctx context.Context, inc Increment) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(
		ctx,
		queryIncrementUsageRow,
		uuid.NewString(),
		inc.UserID,
		inc.UserEmail,
		inc.Date,
		inc.Prompts,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage row: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) IncrementUsageRowIfBelow(
	ctx context.Context,
	inc Increment,
	month YearMonth,
	limit int,
) (*Record, int, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, queryLockUser, inc.UserID); err != nil {
		return nil, 0, false, fmt.Errorf("failed to lock user usage: %w", err)
	}

	var used int64
	if err := tx.QueryRow(ctx, queryMonthInteractions, inc.UserID, month.Start(), month.End()).Scan(&used); err != nil {
		return nil, 0, false, fmt.Errorf("failed to sum monthly usage: %w", err)
	}

	if int(used) >= limit {
		return nil, int(used), false, nil
	}

	rec, err := scanRecord(tx.QueryRow(
		ctx,
		queryIncrementUsageRow,
		uuid.NewString(),
		inc.UserID,
		inc.UserEmail,
		inc.Date,
		inc.Prompts,
	))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to increment usage row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, false, fmt.Errorf("failed to commit usage increment: %w", err)
	}

	return rec, int(used) + 1, true, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.UserEmail,
		&rec.Date,
		&rec.Interactions,
		&rec.Prompts,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}

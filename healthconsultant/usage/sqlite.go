package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeberg.org/healthconsultant/server/healthconsultant/sqlitedb"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteRecordColumns = `id, user_id, user_email, usage_date, interactions, prompts, created_at, updated_at`

const (
	sqliteFindUsageRow = `
		SELECT ` + sqliteRecordColumns + `
		FROM usage_records
		WHERE user_id = ? AND usage_date = ?
	`

	sqliteInsertUsageRow = `
		INSERT INTO usage_records (id, user_id, user_email, usage_date, interactions, prompts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + sqliteRecordColumns

	sqliteUpdateUsageRow = `
		UPDATE usage_records
		SET interactions = ?, prompts = ?, updated_at = ?
		WHERE id = ?
		RETURNING ` + sqliteRecordColumns

	sqliteListUsageRows = `
		SELECT ` + sqliteRecordColumns + `
		FROM usage_records
		WHERE (?1 = '' OR user_id = ?1)
		AND (?2 = '' OR usage_date >= ?2)
		AND (?3 = '' OR usage_date <= ?3)
		ORDER BY usage_date ASC, user_id ASC
	`

	sqliteIncrementUsageRow = `
		INSERT INTO usage_records (id, user_id, user_email, usage_date, interactions, prompts, created_at, updated_at)
		VALUES (?1, ?2, ?3, ?4, 1, ?5, ?6, ?6)
		ON CONFLICT (user_id, usage_date)
		DO UPDATE SET
			interactions = usage_records.interactions + 1,
			prompts = usage_records.prompts + excluded.prompts,
			updated_at = excluded.updated_at
		RETURNING ` + sqliteRecordColumns

	sqliteMonthInteractions = `
		SELECT COALESCE(SUM(interactions), 0)
		FROM usage_records
		WHERE user_id = ? AND usage_date >= ? AND usage_date < ?
	`
)

// Store backed by a sqlitedb database; used for local development, the CLI and tests
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) FindUsageRow(ctx context.Context, userID, date string) (*Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, sqliteFindUsageRow, userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find usage row: %w", err)
	}

	return rec, nil
}

func (s *SQLiteStore) InsertUsageRow(ctx context.Context, in NewRecord) (*Record, error) {
	now := sqlitedb.FormatTime(s.now())

	rec, err := scanSQLiteRecord(s.db.QueryRowContext(
		ctx,
		sqliteInsertUsageRow,
		uuid.NewString(),
		in.UserID,
		in.UserEmail,
		in.Date,
		in.Interactions,
		in.Prompts,
		now,
		now,
	))

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return nil, ErrDuplicateRecord
	}

	if err != nil {
		return nil, fmt.Errorf("failed to insert usage row: %w", err)
	}

	return rec, nil
}

func (s *SQLiteStore) UpdateUsageRow(ctx context.Context, id string, interactions, prompts int) (*Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(
		ctx,
		sqliteUpdateUsageRow,
		interactions,
		prompts,
		sqlitedb.FormatTime(s.now()),
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update usage row: %w", err)
	}

	return rec, nil
}

func (s *SQLiteStore) ListUsageRows(ctx context.Context, filter Filter) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, sqliteListUsageRows, filter.UserID, filter.DateFrom, filter.DateTo)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage rows: %w", err)
	}

	defer rows.Close()

	records := []Record{}

	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
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

func (s *SQLiteStore) IncrementUsageRow(ctx context.Context, inc Increment) (*Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(
		ctx,
		sqliteIncrementUsageRow,
		uuid.NewString(),
		inc.UserID,
		inc.UserEmail,
		inc.Date,
		inc.Prompts,
		sqlitedb.FormatTime(s.now()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage row: %w", err)
	}

	return rec, nil
}

// the database is opened with a single connection, so the transaction below
// holds it exclusively until commit
func (s *SQLiteStore) IncrementUsageRowIfBelow(
	ctx context.Context,
	inc Increment,
	month YearMonth,
	limit int,
) (*Record, int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var used int
	if err := tx.QueryRowContext(ctx, sqliteMonthInteractions, inc.UserID, month.Start(), month.End()).Scan(&used); err != nil {
		return nil, 0, false, fmt.Errorf("failed to sum monthly usage: %w", err)
	}

	if used >= limit {
		return nil, used, false, nil
	}

	rec, err := scanSQLiteRecord(tx.QueryRowContext(
		ctx,
		sqliteIncrementUsageRow,
		uuid.NewString(),
		inc.UserID,
		inc.UserEmail,
		inc.Date,
		inc.Prompts,
		sqlitedb.FormatTime(s.now()),
	))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to increment usage row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, false, fmt.Errorf("failed to commit usage increment: %w", err)
	}

	return rec, used + 1, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		createdAt, updatedAt string
	)

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.UserEmail,
		&rec.Date,
		&rec.Interactions,
		&rec.Prompts,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.CreatedAt, err = sqlitedb.ParseTime(createdAt); err != nil {
		return nil, err
	}

	if rec.UpdatedAt, err = sqlitedb.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	return &rec, nil
}

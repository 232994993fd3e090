package usage

const recordColumns = `id, user_id, user_email, to_char(usage_date, 'YYYY-MM-DD'), interactions, prompts, created_at, updated_at`

const (
	queryFindUsageRow = `
		SELECT ` + recordColumns + `
		FROM usage_records
		WHERE user_id = $1 AND usage_date = $2::date
	`

	queryInsertUsageRow = `
		INSERT INTO usage_records (id, user_id, user_email, usage_date, interactions, prompts)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		RETURNING ` + recordColumns

	queryUpdateUsageRow = `
		UPDATE usage_records
		SET interactions = $2, prompts = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + recordColumns

	queryListUsageRows = `
		SELECT ` + recordColumns + `
		FROM usage_records
		WHERE ($1::text IS NULL OR user_id = $1::text)
		AND ($2::date IS NULL OR usage_date >= $2::date)
		AND ($3::date IS NULL OR usage_date <= $3::date)
		ORDER BY usage_date ASC, user_id ASC
	`

	queryIncrementUsageRow = `
		INSERT INTO usage_records (id, user_id, user_email, usage_date, interactions, prompts)
		VALUES ($1, $2, $3, $4::date, 1, $5)
		ON CONFLICT (user_id, usage_date)
		DO UPDATE SET
			interactions = usage_records.interactions + 1,
			prompts = usage_records.prompts + EXCLUDED.prompts,
			updated_at = NOW()
		RETURNING ` + recordColumns

	// transaction-scoped, released on commit/rollback; serializes one user
	// without blocking anyone else
	queryLockUser = `
		SELECT pg_advisory_xact_lock(hashtextextended($1, 0))
	`

	queryMonthInteractions = `
		SELECT COALESCE(SUM(interactions), 0)
		FROM usage_records
		WHERE user_id = $1 AND usage_date >= $2::date AND usage_date < $3::date
	`
)

package users

const userColumns = `id, email, name, plan, plan_id, is_admin, stripe_customer_id, created_at, updated_at`

const (
	queryFindByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	queryFindByStripeCustomer = `
		SELECT ` + userColumns + `
		FROM users
		WHERE stripe_customer_id = $1
	`

	queryCreate = `
		INSERT INTO users (id, email, name, plan, plan_id, is_admin, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	queryUpdatePlan = `
		UPDATE users
		SET plan = $2, plan_id = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
)

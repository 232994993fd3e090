package config

import "time"

// supported persistence backends for the usage ledger
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// supported consultation generators
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
	Port        string `env:"PORT" envDefault:"8080"`

	// storage
	DatabaseDriver     string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	SupabaseConnString string `env:"SUPABASE_CONNECTION_STRING"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"data/healthconsultant.db"`

	// optional; in-memory fallbacks are used when empty
	RedisURL string `env:"REDIS_URL"`

	// auth and billing
	JWTSecret           string `env:"JWT_SECRET,notEmpty"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// consultations
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	LLMModel      string `env:"LLM_MODEL"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// plans and limits
	FreePlanTitle    string        `env:"FREE_PLAN_TITLE" envDefault:"Free"`
	PlanCacheTTL     time.Duration `env:"PLAN_CACHE_TTL" envDefault:"5m"`
	RecordRateLimit  string        `env:"RECORD_RATE_LIMIT" envDefault:"30-M"`
	ConsultRateLimit string        `env:"CONSULT_RATE_LIMIT" envDefault:"10-M"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// loads configuration from the environment, reading .env first when present
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	return Parse()
}

// parses and validates configuration from the process environment only
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checks cross-field requirements that struct tags cannot express
func (c *Config) Validate() error {
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.SupabaseConnString == "" {
			return fmt.Errorf("SUPABASE_CONNECTION_STRING environment variable is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH environment variable is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	if strings.TrimSpace(c.FreePlanTitle) == "" {
		return fmt.Errorf("FREE_PLAN_TITLE must not be empty")
	}

	if c.IsProduction() && c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable is required in production")
	}

	return nil
}

package main

import (
	"fmt"

	"codeberg.org/healthconsultant/server/healthconsultant/plans"
	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/auth"
	"codeberg.org/healthconsultant/server/internal/billing"
	"codeberg.org/healthconsultant/server/internal/config"
	"codeberg.org/healthconsultant/server/internal/consult"
	"codeberg.org/healthconsultant/server/internal/entitlement"
	"codeberg.org/healthconsultant/server/internal/llm"
	"codeberg.org/healthconsultant/server/internal/logger"
	"codeberg.org/healthconsultant/server/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// creates the domain services over the chosen database
func InitializeServices(cfg *config.Config, db *database, redisClient *redis.Client, m *metrics.Metrics) (*Services, error) {
	tokens, err := auth.NewTokens(cfg.JWTSecret, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create token validator: %w", err)
	}

	var cache plans.Cache = plans.NewMemoryCache()
	if redisClient != nil {
		cache = plans.NewRedisCache(redisClient)
	}

	accounts := db.accounts()
	catalog := plans.NewCatalog(db.planSource(), cache, cfg.PlanCacheTTL)
	ledger := usage.NewLedger(db.usageStore())
	gate := entitlement.NewService(accounts, catalog, ledger, cfg.FreePlanTitle, m)

	services := &Services{
		Ledger:      ledger,
		Catalog:     catalog,
		Entitlement: gate,
		Billing:     billing.NewService(accounts, catalog, cfg.FreePlanTitle),
		Verifier:    billing.NewVerifier(cfg.StripeWebhookSecret, billing.DefaultTolerance),
		Tokens:      tokens,
		Metrics:     m,
	}

	generator, err := llm.NewGenerator(generatorConfig(cfg))
	if err != nil {
		logger.Warn("consultations disabled", "provider", cfg.LLMProvider, "error", err)
		return services, nil
	}

	services.Consult = consult.NewService(gate, ledger, generator, m)

	logger.Info("consultations enabled", "provider", cfg.LLMProvider, "model", generator.Model())

	return services, nil
}

func generatorConfig(cfg *config.Config) llm.Config {
	generator := llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		Model:    cfg.LLMModel,
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		generator.APIKey = cfg.OpenAIKey
		generator.BaseURL = cfg.OpenAIBaseURL
	default:
		generator.APIKey = cfg.AnthropicKey
	}

	return generator
}

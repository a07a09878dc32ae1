package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/lifemap/lifemap-api/internal/config"
	"github.com/lifemap/lifemap-api/internal/llm"
	"github.com/lifemap/lifemap-api/internal/matching"
	"github.com/lifemap/lifemap-api/internal/observability/metrics"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// BuildLLMClient wires ORACLE_PROVIDER, chained with ORACLE_FALLBACK_PROVIDER
// when that is set and configured. It returns nil when the primary provider
// has no credentials.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primary, err := buildProvider(ctx, cfg.OracleProvider, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		logger.Warn("llm provider not configured", "provider", cfg.OracleProvider)
		return nil, nil
	}

	name := strings.TrimSpace(cfg.OracleFallbackProvider)
	if name == "" || strings.EqualFold(name, cfg.OracleProvider) {
		logger.Info("llm client enabled", "provider", cfg.OracleProvider)
		return primary, nil
	}
	fallback, err := buildProvider(ctx, name, cfg, awsCfg)
	if err != nil {
		return nil, err
	}
	if fallback == nil {
		logger.Warn("llm fallback provider not configured", "provider", name)
		return primary, nil
	}
	logger.Info("llm client enabled", "provider", cfg.OracleProvider, "fallback", name)
	return llm.NewFallbackClient(primary, fallback, logger), nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg aws.Config) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, nil
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai client: %w", err)
		}
		return client, nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, nil
	case "bedrock":
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" {
			return nil, nil
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), model), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// BuildSelector returns the oracle selector when SELECTION_MODE=oracle and an
// LLM client is available, otherwise the heuristic selector. The oracle sends
// no model name so each client uses the model it was built with.
func BuildSelector(cfg *appconfig.Config, client llm.Client, cache matching.DecisionCache, m *metrics.BookingMetrics, logger *logging.Logger) matching.Selector {
	if cfg == nil || !cfg.OracleEnabled() || client == nil {
		if cfg != nil && cfg.OracleEnabled() && logger != nil {
			logger.Warn("oracle selection requested without an llm client; using heuristic")
		}
		return matching.NewHeuristicSelector()
	}
	oracle := matching.NewLLMOracle(client, "")
	opts := []matching.OracleOption{
		matching.WithOracleTimeout(cfg.OracleTimeout),
		matching.WithSelectorMetrics(m),
		matching.WithSelectorLogger(logger),
	}
	if cache != nil {
		opts = append(opts, matching.WithDecisionCache(cache))
	}
	return matching.NewSelector(cfg.SelectionMode, oracle, opts...)
}

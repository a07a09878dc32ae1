package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/lifemap/lifemap-api/internal/config"
	"github.com/lifemap/lifemap-api/internal/llm"
	"github.com/lifemap/lifemap-api/internal/matching"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

type stubClient struct{}

func (stubClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	return llm.Response{Text: `{"provider_id": 1}`}, nil
}

func TestBuildLLMClientRequiresConfig(t *testing.T) {
	if _, err := BuildLLMClient(context.Background(), nil, aws.Config{}, logging.Discard()); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildLLMClientWithoutCredentialsReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{OracleProvider: "openai"}

	client, err := BuildLLMClient(context.Background(), cfg, aws.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client != nil {
		t.Fatalf("expected nil client without an api key")
	}
}

func TestBuildLLMClientUnknownProvider(t *testing.T) {
	cfg := &appconfig.Config{OracleProvider: "mystery"}
	if _, err := BuildLLMClient(context.Background(), cfg, aws.Config{}, logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestBuildLLMClientChainsFallback(t *testing.T) {
	cfg := &appconfig.Config{
		OracleProvider:         "openai",
		OpenAIAPIKey:           "sk-test",
		OracleFallbackProvider: "bedrock",
		BedrockModelID:         "anthropic.claude-3-haiku",
		AWSRegion:              "ap-southeast-2",
	}
	client, err := BuildLLMClient(context.Background(), cfg, aws.Config{Region: cfg.AWSRegion}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*llm.FallbackClient); !ok {
		t.Fatalf("expected fallback client, got %T", client)
	}

	cfg.OracleFallbackProvider = "gemini"
	client, err = BuildLLMClient(context.Background(), cfg, aws.Config{}, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := client.(*llm.OpenAIClient); !ok {
		t.Fatalf("expected plain openai client when fallback lacks credentials, got %T", client)
	}
}

func TestBuildSelector(t *testing.T) {
	logger := logging.Discard()

	heuristic := &appconfig.Config{SelectionMode: "heuristic"}
	if _, ok := BuildSelector(heuristic, stubClient{}, nil, nil, logger).(*matching.HeuristicSelector); !ok {
		t.Fatalf("expected heuristic selector")
	}

	oracle := &appconfig.Config{SelectionMode: "oracle"}
	if _, ok := BuildSelector(oracle, nil, nil, nil, logger).(*matching.HeuristicSelector); !ok {
		t.Fatalf("expected heuristic selector without an llm client")
	}
	if _, ok := BuildSelector(oracle, stubClient{}, matching.NewLRUDecisionCache(8, 0), nil, logger).(*matching.OracleSelector); !ok {
		t.Fatalf("expected oracle selector")
	}
}

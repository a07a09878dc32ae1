// Package assistant backs the free-text planning and question endpoints.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/lifemap/lifemap-api/internal/catalog"
	"github.com/lifemap/lifemap-api/internal/llm"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

var tracer = otel.Tracer("lifemap.internal.assistant")

var (
	ErrEmptyMessage  = errors.New("assistant: message is required")
	ErrNotConfigured = errors.New("assistant: llm not configured")
)

const (
	// MaxSuggestions caps the providers returned with a plan.
	MaxSuggestions = 5
	fallbackReply  = "Sorry, I couldn't respond."

	askSystemPrompt = "You are LifeMap's assistant. You help NDIS participants and support workers with schedules, " +
		"appointments, and general wellbeing guidance. Be clear and supportive, but do NOT give medical or legal advice."
	planSystemPrompt = "Output only valid JSON. No commentary."
	planInstruction  = `You are an NDIS appointment planner.
Extract strict JSON from the participant message below.
Return exactly this shape (no commentary):
{"service": string, "suburb": string, "day": string, "time": string}
service is a support category such as "Speech Therapy", "Support Worker" or "Psychology".
day is a weekday or an ISO date if one is given. time is as written, for example "2pm" or "morning".
Use "" for anything the message does not say.
Message: `
)

// Plan is a draft booking extracted from free text.
type Plan struct {
	State              string             `json:"state"`
	Service            string             `json:"service"`
	Suburb             string             `json:"suburb"`
	Day                string             `json:"day"`
	Time               string             `json:"time"`
	SuggestedProviders []catalog.Provider `json:"suggestedProviders"`
}

// Assistant answers questions and drafts plans. A nil client leaves it
// unconfigured; every call then returns ErrNotConfigured.
type Assistant struct {
	client  llm.Client
	catalog *catalog.Catalog
	model   string
	logger  *logging.Logger
}

func New(client llm.Client, cat *catalog.Catalog, model string, logger *logging.Logger) *Assistant {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assistant{client: client, catalog: cat, model: model, logger: logger}
}

func (a *Assistant) Configured() bool {
	return a != nil && a.client != nil
}

// Ask returns the assistant's reply to a single message.
func (a *Assistant) Ask(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if !a.Configured() {
		return "", ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "assistant.ask")
	defer span.End()

	resp, err := a.client.Complete(ctx, llm.Request{
		Model:       a.model,
		System:      []string{askSystemPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: message}},
		MaxTokens:   400,
		Temperature: 0.4,
	})
	if errors.Is(err, llm.ErrEmptyResponse) {
		return fallbackReply, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("assistant: ask: %w", err)
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		reply = fallbackReply
	}
	return reply, nil
}

type extractedPlan struct {
	Service string `json:"service"`
	Suburb  string `json:"suburb"`
	Day     string `json:"day"`
	Time    string `json:"time"`
}

// Plan extracts service, suburb, day and time from message and suggests up
// to MaxSuggestions matching providers. Unlike booking, suggestions never
// fall back to unrelated providers.
func (a *Assistant) Plan(ctx context.Context, message string) (*Plan, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if !a.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, span := tracer.Start(ctx, "assistant.plan")
	defer span.End()

	quoted, _ := json.Marshal(message)
	resp, err := a.client.Complete(ctx, llm.Request{
		Model:       a.model,
		System:      []string{planSystemPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: planInstruction + string(quoted)}},
		MaxTokens:   200,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil && !errors.Is(err, llm.ErrEmptyResponse) {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: plan: %w", err)
	}

	extracted := parsePlan(resp.Text)
	if extracted == (extractedPlan{}) {
		a.logger.Debug("plan extraction produced no fields")
	}
	suggestions := catalog.FilterWith(a.catalog, extracted.Service, catalog.FilterOptions{
		Locality: extracted.Suburb,
		Strict:   true,
		Limit:    MaxSuggestions,
	})
	if suggestions == nil {
		suggestions = []catalog.Provider{}
	}
	return &Plan{
		State:              "draft",
		Service:            extracted.Service,
		Suburb:             extracted.Suburb,
		Day:                extracted.Day,
		Time:               extracted.Time,
		SuggestedProviders: suggestions,
	}, nil
}

// parsePlan reads the first JSON object in text. Anything unparseable
// yields an empty plan.
func parsePlan(text string) extractedPlan {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return extractedPlan{}
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return extractedPlan{}
	}
	field := func(key string) string {
		s, _ := raw[key].(string)
		return strings.TrimSpace(s)
	}
	return extractedPlan{
		Service: field("service"),
		Suburb:  field("suburb"),
		Day:     field("day"),
		Time:    field("time"),
	}
}

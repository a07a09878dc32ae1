package matching

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lifemap/lifemap-api/internal/catalog"
	"github.com/lifemap/lifemap-api/internal/llm"
)

// Oracle ranks candidates and returns a typed decision. Implementations must
// honour ctx cancellation where their transport allows it.
type Oracle interface {
	Rank(ctx context.Context, req RequestContext, candidates []catalog.Provider) Decision
}

const oracleSystemPrompt = `You match NDIS participants with disability support providers.
You receive a JSON object with a "request" and a list of "candidates".
Pick the single best candidate for the request.
Return only JSON of the form {"provider_id": <id>} where <id> is the id of one candidate.
Do not add explanations, markdown or any other keys.`

// LLMOracle asks a chat-completion backend to pick a provider.
type LLMOracle struct {
	client    llm.Client
	model     string
	maxTokens int32
}

// NewLLMOracle wraps client. model may be empty to use the backend default.
func NewLLMOracle(client llm.Client, model string) *LLMOracle {
	if client == nil {
		panic("matching: llm client cannot be nil")
	}
	return &LLMOracle{client: client, model: model, maxTokens: 64}
}

type oracleCandidate struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Locality   string   `json:"locality"`
	Categories []string `json:"categories"`
}

type oraclePayload struct {
	Request    RequestContext    `json:"request"`
	Candidates []oracleCandidate `json:"candidates"`
}

func buildOraclePayload(req RequestContext, candidates []catalog.Provider) ([]byte, error) {
	payload := oraclePayload{
		Request:    req,
		Candidates: make([]oracleCandidate, 0, len(candidates)),
	}
	for _, p := range candidates {
		payload.Candidates = append(payload.Candidates, oracleCandidate{
			ID:         p.ID,
			Name:       p.Name,
			Locality:   p.Locality,
			Categories: p.ServiceCategories,
		})
	}
	return json.Marshal(payload)
}

func (o *LLMOracle) Rank(ctx context.Context, req RequestContext, candidates []catalog.Provider) Decision {
	body, err := buildOraclePayload(req, candidates)
	if err != nil {
		return Failed(ReasonMalformed, fmt.Errorf("matching: encode payload: %w", err))
	}
	resp, err := o.client.Complete(ctx, llm.Request{
		Model:       o.model,
		System:      []string{oracleSystemPrompt},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: string(body)}},
		MaxTokens:   o.maxTokens,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failed(ReasonTimeout, err)
		}
		if errors.Is(err, llm.ErrEmptyResponse) {
			return Failed(ReasonMalformed, err)
		}
		return Failed(ReasonTransport, err)
	}
	id, err := parseProviderID(resp.Text)
	if err != nil {
		return Failed(ReasonMalformed, err)
	}
	return Selected(id)
}

var errNoProviderID = errors.New("matching: oracle reply has no provider id")

// parseProviderID treats the reply as untrusted text. It tolerates markdown
// fences and prose around a single JSON object, and accepts "provider_id" or
// "id" as a number or numeric string.
func parseProviderID(text string) (int, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return 0, fmt.Errorf("matching: oracle reply is not json: %q", truncate(text, 80))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text[start : end+1])))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return 0, fmt.Errorf("matching: decode oracle reply: %w", err)
	}
	for _, key := range []string{"provider_id", "providerId", "id"} {
		raw, ok := obj[key]
		if !ok || raw == nil {
			continue
		}
		return coerceID(raw)
	}
	return 0, errNoProviderID
}

func coerceID(v any) (int, error) {
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = strings.TrimSpace(val)
	default:
		return 0, fmt.Errorf("matching: provider id has type %T", v)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("matching: provider id %q is not an integer", s)
	}
	return int(f), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package matching picks one provider from a filtered candidate list. The
// heuristic selector is deterministic; the oracle selector asks an LLM and
// falls back to the heuristic whenever the answer cannot be trusted.
package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/lifemap/lifemap-api/internal/catalog"
)

// Strategy names recorded on appointments and metrics.
const (
	StrategyHeuristic = "heuristic"
	StrategyOracle    = "oracle"
)

// ErrNoCandidates is returned when Select is called with an empty list.
var ErrNoCandidates = errors.New("matching: no candidates")

// RequestContext is the part of a booking request selectors may look at.
type RequestContext struct {
	Title           string `json:"title"`
	ServiceCategory string `json:"serviceCategory"`
	Location        string `json:"location"`
}

// Selection is the chosen provider plus how it was chosen.
type Selection struct {
	Provider catalog.Provider
	Strategy string
	// FallbackReason is set when the oracle was bypassed.
	FallbackReason string
}

// Selector chooses exactly one member of candidates.
type Selector interface {
	Select(ctx context.Context, candidates []catalog.Provider, req RequestContext) (Selection, error)
}

// NewSelector returns the selector for a configured mode. The oracle mode
// needs a non-nil oracle; otherwise the heuristic is used.
func NewSelector(mode string, oracle Oracle, opts ...OracleOption) Selector {
	if strings.EqualFold(strings.TrimSpace(mode), StrategyOracle) && oracle != nil {
		return NewOracleSelector(oracle, opts...)
	}
	return NewHeuristicSelector()
}

func findCandidate(candidates []catalog.Provider, id int) (catalog.Provider, bool) {
	for _, p := range candidates {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Provider{}, false
}

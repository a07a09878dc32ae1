package matching

import (
	"context"
	"strings"
	"unicode"

	"github.com/lifemap/lifemap-api/internal/catalog"
)

const (
	localityWeight = 2
	categoryWeight = 1
	keywordWeight  = 1
)

// HeuristicSelector scores candidates on locality, category and title
// keywords. Ties go to the earliest candidate.
type HeuristicSelector struct{}

func NewHeuristicSelector() *HeuristicSelector {
	return &HeuristicSelector{}
}

func (h *HeuristicSelector) Select(_ context.Context, candidates []catalog.Provider, req RequestContext) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	keywords := titleKeywords(req.Title)
	best, bestScore := 0, -1
	for i, p := range candidates {
		s := score(p, req, keywords)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	return Selection{Provider: candidates[best], Strategy: StrategyHeuristic}, nil
}

func score(p catalog.Provider, req RequestContext, keywords []string) int {
	total := 0
	if p.InLocality(req.Location) {
		total += localityWeight
	}
	if p.Offers(req.ServiceCategory) {
		total += categoryWeight
	}
	if len(keywords) == 0 {
		return total
	}
	haystack := strings.ToLower(p.Name + " " + strings.Join(p.ServiceCategories, " "))
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			total += keywordWeight
		}
	}
	return total
}

// titleKeywords splits a title into distinct lower-case words of three or
// more letters.
func titleKeywords(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

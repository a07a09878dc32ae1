package catalog

import "strings"

// MaxCandidates bounds the candidate list handed to a selector so oracle
// payloads stay small.
const MaxCandidates = 25

// FilterOptions tunes FilterWith.
type FilterOptions struct {
	// Locality narrows candidates to providers whose locality contains it.
	Locality string
	// Strict disables the any-active-provider fallback.
	Strict bool
	// Limit caps the result below MaxCandidates when positive.
	Limit int
}

// Filter returns active providers offering serviceCategory. When none match
// it returns every active provider instead, so selection only runs dry when
// the catalog has no active providers at all.
func Filter(c *Catalog, serviceCategory string) []Provider {
	return FilterWith(c, serviceCategory, FilterOptions{})
}

// FilterWith is Filter with locality narrowing, strict mode and a custom cap.
// A blank serviceCategory places no category constraint on the result.
func FilterWith(c *Catalog, serviceCategory string, opts FilterOptions) []Provider {
	active := c.Active()
	if len(active) == 0 {
		return nil
	}

	candidates := active
	if strings.TrimSpace(serviceCategory) != "" {
		matched := make([]Provider, 0, len(active))
		for _, p := range active {
			if p.Offers(serviceCategory) {
				matched = append(matched, p)
			}
		}
		switch {
		case len(matched) > 0:
			candidates = matched
		case opts.Strict:
			return nil
		}
	}

	if strings.TrimSpace(opts.Locality) != "" {
		local := make([]Provider, 0, len(candidates))
		for _, p := range candidates {
			if p.InLocality(opts.Locality) {
				local = append(local, p)
			}
		}
		switch {
		case len(local) > 0:
			candidates = local
		case opts.Strict:
			return nil
		}
	}

	limit := MaxCandidates
	if opts.Limit > 0 && opts.Limit < limit {
		limit = opts.Limit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

package catalog

import "strings"

// Contact holds optional ways to reach a provider.
type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Provider is a support business that can be assigned to an appointment.
// Values are treated as immutable once they are part of a Catalog.
type Provider struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Locality          string   `json:"locality"`
	ServiceCategories []string `json:"serviceCategories"`
	Contact           *Contact `json:"contact,omitempty"`
	Active            bool     `json:"active"`
}

// Offers reports whether the provider lists the category. Matching is
// case-insensitive on trimmed strings.
func (p Provider) Offers(category string) bool {
	category = strings.TrimSpace(category)
	if category == "" {
		return false
	}
	for _, c := range p.ServiceCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// InLocality reports whether the provider's locality contains the given
// locality, ignoring case.
func (p Provider) InLocality(locality string) bool {
	locality = strings.ToLower(strings.TrimSpace(locality))
	if locality == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.Locality), locality)
}

func normalizeCategories(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

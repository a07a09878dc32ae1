package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCategories is returned when an active provider lists no services.
	ErrEmptyCategories = errors.New("catalog: active provider has no service categories")

	// ErrDuplicateProvider is returned when two entries share an id.
	ErrDuplicateProvider = errors.New("catalog: duplicate provider id")
)

// Catalog is a read-only provider list. It is safe for concurrent use because
// nothing mutates it after New returns.
type Catalog struct {
	providers []Provider
	byID      map[int]int
}

// New validates and copies the providers into a catalog, preserving order.
func New(providers []Provider) (*Catalog, error) {
	c := &Catalog{
		providers: make([]Provider, 0, len(providers)),
		byID:      make(map[int]int, len(providers)),
	}
	for _, p := range providers {
		p.Name = strings.TrimSpace(p.Name)
		p.Locality = strings.TrimSpace(p.Locality)
		p.ServiceCategories = normalizeCategories(p.ServiceCategories)
		if p.Contact != nil {
			contact := *p.Contact
			p.Contact = &contact
		}
		if p.Active && len(p.ServiceCategories) == 0 {
			return nil, fmt.Errorf("%w: provider %d", ErrEmptyCategories, p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateProvider, p.ID)
		}
		c.byID[p.ID] = len(c.providers)
		c.providers = append(c.providers, p)
	}
	return c, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(providers []Provider) *Catalog {
	c, err := New(providers)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of providers, active or not.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.providers)
}

// Providers returns a copy of every provider in catalog order.
func (c *Catalog) Providers() []Provider {
	if c == nil {
		return nil
	}
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

// Active returns the active providers in catalog order.
func (c *Catalog) Active() []Provider {
	if c == nil {
		return nil
	}
	out := make([]Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// Get looks a provider up by id.
func (c *Catalog) Get(id int) (Provider, bool) {
	if c == nil {
		return Provider{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Provider{}, false
	}
	return c.providers[idx], true
}

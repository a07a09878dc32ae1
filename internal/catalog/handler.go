package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Handler lists providers for browsing before a booking.
type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// List handles GET /providers?service=&suburb=&strict=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strict, _ := strconv.ParseBool(strings.TrimSpace(q.Get("strict")))
	providers := FilterWith(h.catalog, q.Get("service"), FilterOptions{
		Locality: q.Get("suburb"),
		Strict:   strict,
	})
	if providers == nil {
		providers = []Provider{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(providers)
}

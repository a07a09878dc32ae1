package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifemap/lifemap-api/internal/identity"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

const maxBodyBytes = 1 << 20

type bookingService interface {
	Create(ctx context.Context, req CreateRequest) (*Appointment, error)
	List(ctx context.Context, scopeIdentity string) ([]Appointment, error)
}

// Handler serves the appointment endpoints.
type Handler struct {
	svc    bookingService
	logger *logging.Logger
	// trustBodyIdentity allows requesterIdentity from the body when no
	// verified identity is on the request.
	trustBodyIdentity bool
}

// NewHandler creates the handler. trustBodyIdentity should only be true when
// no session verifier sits in front of it.
func NewHandler(svc *Service, logger *logging.Logger, trustBodyIdentity bool) *Handler {
	return newHandler(svc, logger, trustBodyIdentity)
}

func newHandler(svc bookingService, logger *logging.Logger, trustBodyIdentity bool) *Handler {
	if svc == nil {
		panic("appointments: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger, trustBodyIdentity: trustBodyIdentity}
}

type createResponse struct {
	OK          bool         `json:"ok"`
	Appointment *Appointment `json:"appointment,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, createResponse{Error: "invalid request body"})
		return
	}

	if verified, ok := identity.FromContext(r.Context()); ok {
		req.RequesterIdentity = verified
		req.IdentityVerified = true
	} else if !h.trustBodyIdentity {
		req.RequesterIdentity = ""
	}

	appt, err := h.svc.Create(r.Context(), req)
	if err != nil {
		status, msg := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to create appointment", "error", err, "status", status)
		}
		writeJSON(w, status, createResponse{Error: msg})
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{OK: true, Appointment: appt})
}

// List handles GET /appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, verified := identity.FromContext(r.Context())
	rows, err := h.svc.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeJSON(w, http.StatusInternalServerError, createResponse{Error: "failed to list appointments"})
		return
	}
	if rows == nil {
		rows = []Appointment{}
	}
	if !verified && !h.trustBodyIdentity {
		rows = redactOwners(rows)
	}
	writeJSON(w, http.StatusOK, rows)
}

// redactOwners hides owner identities from anonymous callers when session
// auth is on.
func redactOwners(rows []Appointment) []Appointment {
	out := make([]Appointment, len(rows))
	for i, row := range rows {
		row.OwnerIdentity = ""
		out[i] = row
	}
	return out
}

func classify(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Reason
	case errors.Is(err, ErrNoProviderAvailable):
		return http.StatusServiceUnavailable, ErrNoProviderAvailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

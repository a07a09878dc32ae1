package assistant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lifemap/lifemap-api/pkg/logging"
)

const maxBodyBytes = 64 << 10

// Handler serves POST /plan and POST /ask-ai.
type Handler struct {
	assistant *Assistant
	logger    *logging.Logger
}

func NewHandler(a *Assistant, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{assistant: a, logger: logger}
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return "", false
	}
	return req.Message, true
}

func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	message, ok := h.decode(w, r)
	if !ok {
		return
	}
	plan, err := h.assistant.Plan(r.Context(), message)
	if err != nil {
		h.writeError(w, err, "AI planning failed")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	message, ok := h.decode(w, r)
	if !ok {
		return
	}
	reply, err := h.assistant.Ask(r.Context(), message)
	if err != nil {
		h.writeError(w, err, "Something went wrong talking to the AI.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
	case errors.Is(err, ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "AI is not configured on the server."})
	default:
		h.logger.Error("assistant request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package reminders

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lifemap/lifemap-api/pkg/logging"
)

// Handler exposes a manual trigger for operators.
type Handler struct {
	runner *Runner
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(runner *Runner, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{runner: runner, logger: logger, now: time.Now}
}

// Run handles POST /admin/reminders/run.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	res, err := h.runner.Run(r.Context(), h.now())
	if err != nil {
		h.logger.Error("reminder run failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "reminder run failed"})
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

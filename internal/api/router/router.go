package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lifemap/lifemap-api/internal/appointments"
	"github.com/lifemap/lifemap-api/internal/assistant"
	"github.com/lifemap/lifemap-api/internal/catalog"
	httpmiddleware "github.com/lifemap/lifemap-api/internal/http/middleware"
	"github.com/lifemap/lifemap-api/internal/reminders"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	ProvidersHandler    *catalog.Handler
	AssistantHandler    *assistant.Handler
	RemindersHandler    *reminders.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// SessionVerifier resolves bearer tokens to a verified identity. Nil
	// leaves every request anonymous.
	SessionVerifier httpmiddleware.TokenVerifier
	RateLimiter     *httpmiddleware.RateLimiter
	AdminAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Client API: rate limited, identity resolved when a session token is sent.
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		api.Use(httpmiddleware.SessionIdentity(cfg.SessionVerifier, cfg.Logger))

		if cfg.AppointmentsHandler != nil {
			api.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Create)
				r.Get("/", cfg.AppointmentsHandler.List)
			})
		}
		if cfg.ProvidersHandler != nil {
			api.Get("/providers", cfg.ProvidersHandler.List)
		}
		if cfg.AssistantHandler != nil {
			api.Post("/plan", cfg.AssistantHandler.Plan)
			api.Post("/ask-ai", cfg.AssistantHandler.Ask)
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.RemindersHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Post("/reminders/run", cfg.RemindersHandler.Run)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

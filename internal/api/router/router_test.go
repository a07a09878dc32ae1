package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifemap/lifemap-api/internal/appointments"
	"github.com/lifemap/lifemap-api/internal/catalog"
	httpmiddleware "github.com/lifemap/lifemap-api/internal/http/middleware"
	"github.com/lifemap/lifemap-api/internal/matching"
	"github.com/lifemap/lifemap-api/internal/reminders"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

const (
	sessionSecret = "session-secret"
	adminSecret   = "admin-secret"
)

type reminderSender struct{}

func (reminderSender) NotifyReminder(context.Context, appointments.Appointment) (bool, error) {
	return false, nil
}

func newTestRouter(t *testing.T, withSession bool) http.Handler {
	t.Helper()

	logger := logging.Discard()
	cat := catalog.MustNew([]catalog.Provider{
		{ID: 1, Name: "Bright Speech", Locality: "Epping", ServiceCategories: []string{"Speech Therapy"}, Active: true},
		{ID: 2, Name: "Ryde Community Care", Locality: "Ryde", ServiceCategories: []string{"Support Worker"}, Active: true},
	})
	svc := appointments.NewService(cat, matching.NewHeuristicSelector(), appointments.NewInMemoryRepository(), logger)

	cfg := &Config{
		Logger:              logger,
		AppointmentsHandler: appointments.NewHandler(svc, logger, !withSession),
		ProvidersHandler:    catalog.NewHandler(cat),
		RemindersHandler:    reminders.NewHandler(reminders.NewRunner(svc, reminderSender{}, nil, logger), logger),
		AdminAuthSecret:     adminSecret,
	}
	if withSession {
		cfg.SessionVerifier = httpmiddleware.NewHMACVerifier(sessionSecret)
	}
	return New(cfg)
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func sessionToken(t *testing.T, email string) string {
	return signToken(t, sessionSecret, httpmiddleware.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Email:            email,
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterCreateAndListAppointments(t *testing.T) {
	router := newTestRouter(t, false)

	body := []byte(`{"serviceCategory":"Speech Therapy","date":"2025-03-01","time":"10:00","requesterIdentity":"a@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}
	var created struct {
		OK          bool                     `json:"ok"`
		Appointment appointments.Appointment `json:"appointment"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !created.OK || created.Appointment.ProviderID != 1 {
		t.Fatalf("unexpected booking: %+v", created)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/appointments", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var listed []appointments.Appointment
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.Appointment.ID {
		t.Fatalf("expected created appointment in list, got %+v", listed)
	}
}

func TestRouterSessionScopesAppointments(t *testing.T) {
	router := newTestRouter(t, true)

	for _, owner := range []string{"a@example.com", "b@example.com"} {
		body := []byte(`{"serviceCategory":"Support Worker","date":"2025-03-01","time":"10:00"}`)
		req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, owner))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "a@example.com"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var listed []appointments.Appointment
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].OwnerIdentity != "a@example.com" {
		t.Fatalf("expected only a@example.com bookings, got %+v", listed)
	}
}

func TestRouterRejectsInvalidSession(t *testing.T) {
	router := newTestRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterProviders(t *testing.T) {
	router := newTestRouter(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/providers?service=Support%20Worker", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var providers []catalog.Provider
	if err := json.NewDecoder(rr.Body).Decode(&providers); err != nil {
		t.Fatalf("failed to decode providers: %v", err)
	}
	if len(providers) != 1 || providers[0].ID != 2 {
		t.Fatalf("expected provider 2, got %+v", providers)
	}
}

func TestRouterAdminRemindersRequiresToken(t *testing.T) {
	router := newTestRouter(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/reminders/run", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/reminders/run", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminSecret, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
}

func TestRouterAssistantRoutesMissingWithoutHandler(t *testing.T) {
	router := newTestRouter(t, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/plan", bytes.NewReader([]byte(`{}`))))
	if rr.Code != http.StatusNotFound && rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404/405 when AssistantHandler is nil, got %d", rr.Code)
	}
}

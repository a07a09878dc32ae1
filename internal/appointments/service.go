package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lifemap/lifemap-api/internal/catalog"
	"github.com/lifemap/lifemap-api/internal/matching"
	"github.com/lifemap/lifemap-api/internal/observability/metrics"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

var tracer = otel.Tracer("lifemap.internal.appointments")

const (
	defaultStoreTimeout  = 5 * time.Second
	defaultNotifyTimeout = 5 * time.Second
)

// Notifier is told about every stored appointment. Failures never fail the
// booking.
type Notifier interface {
	NotifyBooked(ctx context.Context, appt Appointment, identityVerified bool) error
}

// Service runs the booking pipeline: validate, filter, select, store, notify.
type Service struct {
	catalog       *catalog.Catalog
	selector      matching.Selector
	repo          Repository
	notifier      Notifier
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	metrics       *metrics.BookingMetrics
	logger        *logging.Logger
}

type ServiceOption func(*Service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithStoreTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func WithNotifyTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the pipeline. The catalog is read-only after this point.
func NewService(cat *catalog.Catalog, selector matching.Selector, repo Repository, logger *logging.Logger, opts ...ServiceOption) *Service {
	if selector == nil {
		panic("appointments: selector required")
	}
	if repo == nil {
		panic("appointments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		catalog:       cat,
		selector:      selector,
		repo:          repo,
		storeTimeout:  defaultStoreTimeout,
		notifyTimeout: defaultNotifyTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books an appointment with one provider from the catalog. Two
// identical requests create two appointments.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()

	req.normalize()
	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}
	span.SetAttributes(attribute.String("lifemap.service", req.ServiceCategory))

	candidates := catalog.Filter(s.catalog, req.ServiceCategory)
	selection, err := s.selector.Select(ctx, candidates, matching.RequestContext{
		Title:           req.Title,
		ServiceCategory: req.ServiceCategory,
		Location:        req.Location,
	})
	if err != nil {
		if errors.Is(err, matching.ErrNoCandidates) {
			s.metrics.ObserveBooking("no_provider")
			return nil, ErrNoProviderAvailable
		}
		s.metrics.ObserveBooking("error")
		span.RecordError(err)
		return nil, fmt.Errorf("appointments: select provider: %w", err)
	}

	appt := &Appointment{
		Title:         req.Title,
		Service:       req.ServiceCategory,
		Locality:      resolveLocality(req.Location, selection.Provider.Locality),
		Day:           req.Date,
		Time:          req.Time,
		ProviderID:    selection.Provider.ID,
		ProviderName:  selection.Provider.Name,
		OwnerIdentity: req.RequesterIdentity,
		SelectedBy:    selection.Strategy,
	}
	if appt.Title == "" {
		appt.Title = req.ServiceCategory
	}

	if err := ctx.Err(); err != nil {
		s.metrics.ObserveBooking("canceled")
		return nil, &PersistenceError{Op: "insert", Err: err}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	saved, err := s.repo.Insert(storeCtx, appt)
	cancel()
	if err != nil {
		s.metrics.ObserveBooking("persistence_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, &PersistenceError{Op: "insert", Err: err}
	}

	span.SetAttributes(
		attribute.String("lifemap.appointment_id", saved.ID),
		attribute.Int("lifemap.provider_id", saved.ProviderID),
		attribute.String("lifemap.selected_by", saved.SelectedBy),
	)
	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment created",
		"appointment_id", saved.ID,
		"provider_id", saved.ProviderID,
		"selected_by", saved.SelectedBy,
		"fallback_reason", selection.FallbackReason,
	)

	s.notify(ctx, *saved, req.IdentityVerified)
	return saved, nil
}

func (s *Service) notify(ctx context.Context, appt Appointment, verified bool) {
	if s.notifier == nil {
		return
	}
	// The booking is already committed, so the notification outlives a
	// client disconnect but not its own deadline.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyBooked(notifyCtx, appt, verified); err != nil {
		s.metrics.ObserveNotification("confirmation", "failed")
		s.logger.Warn("booking notification failed", "error", err, "appointment_id", appt.ID)
		return
	}
	s.metrics.ObserveNotification("confirmation", "handled")
}

// List returns the most recent appointments, newest first. A non-empty
// scopeIdentity restricts the result to that owner.
func (s *Service) List(ctx context.Context, scopeIdentity string) ([]Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.list")
	defer span.End()
	span.SetAttributes(attribute.Bool("lifemap.scoped", scopeIdentity != ""))

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rows, err := s.repo.List(storeCtx, strings.TrimSpace(scopeIdentity), ListLimit)
	if err != nil {
		span.RecordError(err)
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return rows, nil
}

func resolveLocality(requested, providerLocality string) string {
	if requested != "" {
		return requested
	}
	return strings.TrimSpace(providerLocality)
}

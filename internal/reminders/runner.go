// Package reminders emails owners ahead of upcoming appointments.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/lifemap/lifemap-api/internal/appointments"
	"github.com/lifemap/lifemap-api/internal/observability/metrics"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

const (
	keyPrefix        = "reminder:"
	claimTTL         = 48 * time.Hour
	DefaultLeadTime  = 24 * time.Hour
	defaultSendLimit = 10 * time.Second
)

// AppointmentLister is the read side of the booking service.
type AppointmentLister interface {
	List(ctx context.Context, scopeIdentity string) ([]appointments.Appointment, error)
}

// Sender delivers one reminder. It reports false when the appointment has
// no usable recipient.
type Sender interface {
	NotifyReminder(ctx context.Context, appt appointments.Appointment) (bool, error)
}

// Result summarises one run. Skipped counts due appointments that were not
// emailed.
type Result struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
}

// Runner finds appointments starting within the lead time and reminds their
// owners once.
type Runner struct {
	lister   AppointmentLister
	sender   Sender
	dedupe   Deduper
	leadTime time.Duration
	location *time.Location
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

type Option func(*Runner)

func WithLeadTime(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.leadTime = d
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(r *Runner) {
		if loc != nil {
			r.location = loc
		}
	}
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

func NewRunner(lister AppointmentLister, sender Sender, dedupe Deduper, logger *logging.Logger, opts ...Option) *Runner {
	if lister == nil || sender == nil {
		panic("reminders: lister and sender required")
	}
	if dedupe == nil {
		dedupe = NewMemoryDeduper()
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Runner{
		lister:   lister,
		sender:   sender,
		dedupe:   dedupe,
		leadTime: DefaultLeadTime,
		location: time.UTC,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sends reminders for appointments whose start falls in (now, now+lead].
func (r *Runner) Run(ctx context.Context, now time.Time) (Result, error) {
	rows, err := r.lister.List(ctx, "")
	if err != nil {
		return Result{}, fmt.Errorf("reminders: list appointments: %w", err)
	}

	var res Result
	windowEnd := now.Add(r.leadTime)
	for _, appt := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if appt.OwnerIdentity == "" {
			continue
		}
		start, err := appt.StartsAt(r.location)
		if err != nil {
			r.logger.Warn("reminder skipped: bad start time", "appointment_id", appt.ID, "error", err)
			continue
		}
		if !start.After(now) || start.After(windowEnd) {
			continue
		}
		if r.remind(ctx, appt) {
			res.Sent++
		} else {
			res.Skipped++
		}
	}
	r.logger.Info("reminder run complete", "sent", res.Sent, "skipped", res.Skipped, "checked", len(rows))
	return res, nil
}

func (r *Runner) remind(ctx context.Context, appt appointments.Appointment) bool {
	key := keyPrefix + appt.ID
	claimed, err := r.dedupe.Claim(ctx, key, claimTTL)
	if err != nil {
		r.logger.Warn("reminder claim failed", "appointment_id", appt.ID, "error", err)
		return false
	}
	if !claimed {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, defaultSendLimit)
	defer cancel()
	sent, err := r.sender.NotifyReminder(sendCtx, appt)
	if err != nil {
		r.metrics.ObserveNotification("reminder", "failed")
		r.logger.Warn("reminder send failed", "appointment_id", appt.ID, "error", err)
		if relErr := r.dedupe.Release(ctx, key); relErr != nil {
			r.logger.Warn("reminder release failed", "appointment_id", appt.ID, "error", relErr)
		}
		return false
	}
	if !sent {
		r.metrics.ObserveNotification("reminder", "skipped")
		return false
	}
	r.metrics.ObserveNotification("reminder", "sent")
	return true
}

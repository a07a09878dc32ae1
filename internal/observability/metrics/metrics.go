package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking pipeline.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	selectionsTotal    *prometheus.CounterVec
	oracleLatency      *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifemap",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Appointment create attempts by outcome",
		}, []string{"outcome"}),
		selectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifemap",
			Subsystem: "booking",
			Name:      "selections_total",
			Help:      "Provider selections by strategy and fallback reason",
		}, []string{"strategy", "fallback_reason"}),
		oracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lifemap",
			Subsystem: "booking",
			Name:      "oracle_latency_seconds",
			Help:      "Latency of ranking oracle calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lifemap",
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Booking notifications by status",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.selectionsTotal, m.oracleLatency, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSelection records which strategy picked the provider. reason is
// empty when the preferred strategy succeeded.
func (m *BookingMetrics) ObserveSelection(strategy, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.selectionsTotal.WithLabelValues(strategy, reason).Inc()
}

func (m *BookingMetrics) ObserveOracleLatency(result string, seconds float64) {
	if m == nil {
		return
	}
	m.oracleLatency.WithLabelValues(result).Observe(seconds)
}

func (m *BookingMetrics) ObserveNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

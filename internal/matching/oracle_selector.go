package matching

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lifemap/lifemap-api/internal/catalog"
	"github.com/lifemap/lifemap-api/internal/observability/metrics"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

var matchingTracer = otel.Tracer("lifemap.internal.matching")

// DefaultOracleTimeout bounds a single oracle call.
const DefaultOracleTimeout = 4 * time.Second

// OracleSelector asks an Oracle first and falls back to a deterministic
// selector on any failure. The result is always one of the candidates.
type OracleSelector struct {
	oracle   Oracle
	fallback Selector
	timeout  time.Duration
	cache    DecisionCache
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

type OracleOption func(*OracleSelector)

func WithOracleTimeout(d time.Duration) OracleOption {
	return func(s *OracleSelector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithDecisionCache(cache DecisionCache) OracleOption {
	return func(s *OracleSelector) { s.cache = cache }
}

func WithFallbackSelector(sel Selector) OracleOption {
	return func(s *OracleSelector) {
		if sel != nil {
			s.fallback = sel
		}
	}
}

func WithSelectorMetrics(m *metrics.BookingMetrics) OracleOption {
	return func(s *OracleSelector) { s.metrics = m }
}

func WithSelectorLogger(logger *logging.Logger) OracleOption {
	return func(s *OracleSelector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewOracleSelector(oracle Oracle, opts ...OracleOption) *OracleSelector {
	if oracle == nil {
		panic("matching: oracle cannot be nil")
	}
	s := &OracleSelector{
		oracle:   oracle,
		fallback: NewHeuristicSelector(),
		timeout:  DefaultOracleTimeout,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OracleSelector) Select(ctx context.Context, candidates []catalog.Provider, req RequestContext) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	ctx, span := matchingTracer.Start(ctx, "matching.oracle.select")
	defer span.End()
	span.SetAttributes(attribute.Int("lifemap.candidates", len(candidates)))

	key := DecisionKey(req, candidates)
	if sel, ok := s.fromCache(ctx, key, candidates); ok {
		span.SetAttributes(attribute.Bool("lifemap.cache_hit", true))
		s.metrics.ObserveSelection(StrategyOracle, "")
		return sel, nil
	}

	decision := s.decide(ctx, req, candidates)
	if id, ok := decision.ProviderID(); ok {
		if p, found := findCandidate(candidates, id); found {
			if s.cache != nil {
				if err := s.cache.Set(ctx, key, id); err != nil {
					s.logger.Warn("decision cache write failed", "error", err)
				}
			}
			s.metrics.ObserveSelection(StrategyOracle, "")
			span.SetAttributes(attribute.String("lifemap.strategy", StrategyOracle))
			return Selection{Provider: p, Strategy: StrategyOracle}, nil
		}
		decision = Failed(ReasonUnknownID, nil)
		s.logger.Warn("oracle returned id outside candidate set", "provider_id", id)
	}

	sel, err := s.fallback.Select(ctx, candidates, req)
	if err != nil {
		return Selection{}, err
	}
	reason := string(decision.Reason())
	sel.FallbackReason = reason
	s.metrics.ObserveSelection(sel.Strategy, reason)
	span.SetAttributes(
		attribute.String("lifemap.strategy", sel.Strategy),
		attribute.String("lifemap.fallback_reason", reason),
	)
	s.logger.Info("oracle selection fell back", "reason", reason, "error", decision.Err(), "provider_id", sel.Provider.ID)
	return sel, nil
}

func (s *OracleSelector) fromCache(ctx context.Context, key string, candidates []catalog.Provider) (Selection, bool) {
	if s.cache == nil {
		return Selection{}, false
	}
	id, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("decision cache read failed", "error", err)
		return Selection{}, false
	}
	if !ok {
		return Selection{}, false
	}
	p, found := findCandidate(candidates, id)
	if !found {
		return Selection{}, false
	}
	return Selection{Provider: p, Strategy: StrategyOracle}, true
}

// decide runs the oracle under the selector timeout. The call runs in its own
// goroutine so a backend that ignores ctx cannot hold up the booking.
func (s *OracleSelector) decide(ctx context.Context, req RequestContext, candidates []catalog.Provider) Decision {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	result := make(chan Decision, 1)
	go func() {
		result <- s.oracle.Rank(callCtx, req, candidates)
	}()

	var d Decision
	select {
	case d = <-result:
	case <-callCtx.Done():
		d = Failed(ReasonTimeout, callCtx.Err())
	}

	outcome := "selected"
	if _, ok := d.ProviderID(); !ok {
		outcome = string(d.Reason())
	}
	s.metrics.ObserveOracleLatency(outcome, time.Since(started).Seconds())
	return d
}

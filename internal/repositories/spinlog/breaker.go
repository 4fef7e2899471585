package spinlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"
	"github.com/sony/gobreaker"

	"spinly/internal/metrics"
	"spinly/internal/models"
	"spinly/internal/types"
)

// BreakerSink fails appends fast while the underlying sink keeps failing, so
// a dead store does not tie up a goroutine per spin until its timeout.
type BreakerSink struct {
	next Sink
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerSink wraps next in a circuit breaker called name.
func NewBreakerSink(name string, next Sink) *BreakerSink {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			logger.Warningf("Circuit breaker %s changed from %s to %s", cbName, from, to)
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerSink{next: next, cb: cb}
}

func (s *BreakerSink) Append(ctx context.Context, entry models.LogEntry) error {
	// Invalid entries are the caller's fault and must not trip the breaker.
	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Append(ctx, entry)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.WrapError(types.ErrIO, "log storage unavailable", err)
	}
	return err
}

// List is not guarded; reads are operator-driven and rare.
func (s *BreakerSink) List(ctx context.Context) ([]models.LogEntry, error) {
	return s.next.List(ctx)
}

// State returns the breaker state.
func (s *BreakerSink) State() gobreaker.State {
	return s.cb.State()
}

func stateValue(st gobreaker.State) float64 {
	switch st {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

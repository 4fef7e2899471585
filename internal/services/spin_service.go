package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"spinly/internal/metrics"
	"spinly/internal/models"
	"spinly/internal/repositories/stock"
	"spinly/internal/types"
	"spinly/internal/wheel"
)

const (
	defaultSettleTimeout = 30 * time.Second
	defaultIdleTimeout   = time.Hour
)

// SpinOptions tunes the spin service.
type SpinOptions struct {
	// SettleTimeout is how long a session may stay Spinning before the
	// janitor resolves it onto its selected item.
	SettleTimeout time.Duration
	// IdleTimeout is how long an untouched session is kept.
	IdleTimeout time.Duration
	// Rand overrides the selection random source. It is shared by every
	// session and is wrapped with wheel.LockedRand.
	Rand wheel.Rand
}

// viewerSession pairs a spin session with its last activity.
type viewerSession struct {
	session      *wheel.Session
	lastActivity time.Time
}

// SpinService owns one spin session per viewer.
type SpinService struct {
	mu       sync.Mutex
	sessions map[string]*viewerSession // Key: session ID

	stock stock.Repository
	sink  wheel.LogSink
	opts  SpinOptions
	now   func() time.Time
	newID func() string
}

// NewSpinService creates a SpinService.
func NewSpinService(stockRepo stock.Repository, sink wheel.LogSink, opts SpinOptions) *SpinService {
	if opts.SettleTimeout <= 0 {
		opts.SettleTimeout = defaultSettleTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.Rand != nil {
		opts.Rand = wheel.LockedRand(opts.Rand)
	}
	return &SpinService{
		sessions: make(map[string]*viewerSession),
		stock:    stockRepo,
		sink:     sink,
		opts:     opts,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// StartSession creates an Idle session and returns its ID.
func (s *SpinService) StartSession() string {
	wheelOpts := []wheel.Option{
		wheel.WithReporter(reportLogResult),
		wheel.WithClock(s.now),
	}
	if s.opts.Rand != nil {
		wheelOpts = append(wheelOpts, wheel.WithRand(s.opts.Rand))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	s.sessions[id] = &viewerSession{
		session:      wheel.NewSession(s.sink, wheelOpts...),
		lastActivity: s.now(),
	}
	metrics.ActiveSessions.WithLabelValues(string(wheel.Idle)).Inc()
	return id
}

// getSession returns the session for id and marks it active.
func (s *SpinService) getSession(id string) (*wheel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.sessions[id]
	if !ok {
		return nil, types.Errorf(types.ErrNotFound, "session %s not found", id)
	}
	vs.lastActivity = s.now()
	return vs.session, nil
}

// Spin starts a spin for the session over the current stock. accepted is
// false when the session is not Idle; stock is not read in that case.
func (s *SpinService) Spin(ctx context.Context, id string) (wheel.State, bool, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return wheel.State{}, false, err
	}
	if sess.Status() != wheel.Idle {
		return sess.State(), false, nil
	}

	items, err := s.stock.List(ctx)
	if err != nil {
		return wheel.State{}, false, types.WrapError(types.ErrIO, "failed to load stock", err)
	}
	if len(items) == 0 {
		return wheel.State{}, false, types.NewError(types.ErrInvalidInput, "no items to spin")
	}

	_, accepted, err := sess.Spin(items)
	if err != nil {
		return wheel.State{}, false, err
	}
	if accepted {
		moveGauge(wheel.Idle, wheel.Spinning)
	}
	return sess.State(), accepted, nil
}

// Settle delivers the animation-complete event for the session.
func (s *SpinService) Settle(id string, index int) (wheel.Result, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return wheel.Result{}, err
	}
	res, err := sess.Settle(index)
	if err != nil {
		return wheel.Result{}, err
	}
	moveGauge(wheel.Spinning, wheel.Resolved)
	recordSpin(res)
	return res, nil
}

// RevealComplete enables closing the session's result.
func (s *SpinService) RevealComplete(id string) (wheel.State, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return wheel.State{}, err
	}
	sess.RevealComplete()
	return sess.State(), nil
}

// Close dismisses the session's result. closed is false when the reveal has
// not completed yet.
func (s *SpinService) Close(id string) (wheel.State, bool, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return wheel.State{}, false, err
	}
	closed := sess.Close()
	if closed {
		moveGauge(wheel.Resolved, wheel.Idle)
	}
	return sess.State(), closed, nil
}

// State returns the session state.
func (s *SpinService) State(id string) (wheel.State, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return wheel.State{}, err
	}
	return sess.State(), nil
}

// LogResult exposes the session's most recent log append outcome.
func (s *SpinService) LogResult(id string) (<-chan error, error) {
	sess, err := s.getSession(id)
	if err != nil {
		return nil, err
	}
	return sess.LogResult(), nil
}

// EndSession removes a session, e.g. when the wheel page is unloaded.
func (s *SpinService) EndSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vs, ok := s.sessions[id]
	if !ok {
		return
	}
	metrics.ActiveSessions.WithLabelValues(string(vs.session.Status())).Dec()
	delete(s.sessions, id)
}

// SessionCount returns the number of live sessions.
func (s *SpinService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanUpInactiveSessions resolves sessions stuck Spinning past the settle
// timeout and removes sessions idle past the idle timeout.
func (s *SpinService) CleanUpInactiveSessions() (expired, removed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, vs := range s.sessions {
		if res, ok := vs.session.Expire(s.opts.SettleTimeout); ok {
			expired++
			moveGauge(wheel.Spinning, wheel.Resolved)
			recordSpin(res)
			logger.Warningf("Session %s never settled; resolved onto item %s", id, res.Item.ID)
		}
		if now.Sub(vs.lastActivity) > s.opts.IdleTimeout {
			metrics.ActiveSessions.WithLabelValues(string(vs.session.Status())).Dec()
			delete(s.sessions, id)
			removed++
		}
	}
	return expired, removed
}

func reportLogResult(entry models.LogEntry, err error) {
	if err != nil {
		metrics.SpinLogFailures.Inc()
		logger.Errorf("Failed to log spin of item %s: %v", entry.ItemID, err)
		return
	}
	logger.Infof("Logged spin: item=%s winner=%t quantity=%d", entry.ItemID, entry.IsWinner, entry.Quantity)
}

func recordSpin(res wheel.Result) {
	metrics.SpinsTotal.WithLabelValues(string(res.Classification), strconv.FormatBool(res.Forced)).Inc()
}

func moveGauge(from, to wheel.Status) {
	metrics.ActiveSessions.WithLabelValues(string(from)).Dec()
	metrics.ActiveSessions.WithLabelValues(string(to)).Inc()
}

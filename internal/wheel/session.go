package wheel

import (
	"context"
	"sync"
	"time"

	"spinly/internal/models"
	"spinly/internal/types"
)

// Status of a spin session.
type Status string

const (
	Idle     Status = "idle"
	Spinning Status = "spinning"
	Resolved Status = "resolved"
)

const defaultLogTimeout = 10 * time.Second

// LogSink receives one entry per resolved spin.
type LogSink interface {
	Append(ctx context.Context, entry models.LogEntry) error
}

// Reporter observes the outcome of every log append. err is nil on success.
type Reporter func(entry models.LogEntry, err error)

// Result is what the viewer sees once a spin resolves.
type Result struct {
	Item           models.Item    `json:"item"`
	Index          int            `json:"index"`
	Classification Classification `json:"classification"`
	Reveal         Reveal         `json:"reveal"`
	// Forced is set when the session was resolved by the settle timeout
	// rather than by the client.
	Forced bool `json:"forced"`
}

// State is a read-only copy of a session for rendering.
type State struct {
	Status       Status        `json:"status"`
	Items        []models.Item `json:"items,omitempty"`
	Outcome      *Outcome      `json:"outcome,omitempty"`
	Result       *Result       `json:"result,omitempty"`
	CloseEnabled bool          `json:"closeEnabled"`
	SpunAt       *time.Time    `json:"spunAt,omitempty"`
}

// Session is one viewer's spin-to-reveal cycle: Idle -> Spinning -> Resolved -> Idle.
// It is safe for concurrent use; every transition happens under one lock so a
// stray duplicate request cannot double-spin or double-log.
type Session struct {
	mu sync.Mutex

	status       Status
	items        []models.Item
	outcome      Outcome
	result       *Result
	closeEnabled bool
	spunAt       time.Time
	logDone      chan error

	sink       LogSink
	rnd        Rand
	now        func() time.Time
	report     Reporter
	logTimeout time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the random source used for selection.
func WithRand(r Rand) Option {
	return func(s *Session) { s.rnd = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithReporter installs an observer for log append results.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.report = r }
}

// WithLogTimeout bounds each log append.
func WithLogTimeout(d time.Duration) Option {
	return func(s *Session) { s.logTimeout = d }
}

// NewSession returns an Idle session that logs resolved spins to sink.
func NewSession(sink LogSink, opts ...Option) *Session {
	s := &Session{
		status:     Idle,
		sink:       sink,
		rnd:        DefaultRand,
		now:        time.Now,
		logTimeout: defaultLogTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spin starts a spin over a snapshot of items. It returns accepted=false and
// no error when the session is not Idle; the selection policy is not run in
// that case. A selection error leaves the session Idle.
func (s *Session) Spin(items []models.Item) (Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Idle {
		return Outcome{}, false, nil
	}

	outcome, err := Select(items, s.rnd)
	if err != nil {
		return Outcome{}, false, err
	}

	s.items = append([]models.Item(nil), items...)
	s.outcome = outcome
	s.spunAt = s.now()
	s.status = Spinning
	return outcome, true, nil
}

// Settle is called once the animation has stopped on index. It resolves the
// session, classifies the item and emits its log entry. The append runs in
// the background; its result is available from LogResult.
func (s *Session) Settle(index int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Spinning {
		return Result{}, types.Errorf(types.ErrInvalidState, "cannot settle a %s session", s.status)
	}
	if index != s.outcome.Index {
		return Result{}, types.Errorf(types.ErrInvalidState, "settled on index %d but the spin selected %d", index, s.outcome.Index)
	}
	return s.resolveLocked(false), nil
}

// Expire force-settles a session that has been spinning for at least timeout,
// landing on the index already chosen at spin time. ok is false when nothing
// was expired.
func (s *Session) Expire(timeout time.Duration) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Spinning || s.now().Sub(s.spunAt) < timeout {
		return Result{}, false
	}
	return s.resolveLocked(true), true
}

func (s *Session) resolveLocked(forced bool) Result {
	item := s.items[s.outcome.Index]
	class := Classify(item)
	res := &Result{
		Item:           item,
		Index:          s.outcome.Index,
		Classification: class,
		Reveal:         RevealFor(class),
		Forced:         forced,
	}

	s.result = res
	s.status = Resolved
	s.closeEnabled = false

	s.logDone = make(chan error, 1)
	go s.emit(models.NewLogEntry(item, s.now()), s.logDone)

	return *res
}

func (s *Session) emit(entry models.LogEntry, done chan<- error) {
	var err error
	if s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.logTimeout)
		err = s.sink.Append(ctx, entry)
		cancel()
	}
	if s.report != nil {
		s.report(entry, err)
	}
	done <- err
	close(done)
}

// LogResult returns a channel that yields the error (nil on success) of the
// most recent resolution's log append. It is nil before the first resolution.
func (s *Session) LogResult() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logDone
}

// RevealComplete marks the reveal effect as finished, allowing Close. It
// reports whether the session changed.
func (s *Session) RevealComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Resolved || s.closeEnabled {
		return false
	}
	s.closeEnabled = true
	return true
}

// Close returns a resolved session to Idle. It is a no-op until the reveal
// has completed.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != Resolved || !s.closeEnabled {
		return false
	}
	s.status = Idle
	s.items = nil
	s.outcome = Outcome{}
	s.result = nil
	s.closeEnabled = false
	s.spunAt = time.Time{}
	return true
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State returns a copy of the session for rendering.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Status:       s.status,
		CloseEnabled: s.closeEnabled,
	}
	if s.status == Idle {
		return st
	}
	st.Items = append([]models.Item(nil), s.items...)
	outcome := s.outcome
	st.Outcome = &outcome
	spunAt := s.spunAt
	st.SpunAt = &spunAt
	if s.result != nil {
		res := *s.result
		st.Result = &res
	}
	return st
}

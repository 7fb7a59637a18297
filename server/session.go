package haptics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	Hp "github.com/zain-sajid/haptics/plugin"
	Ht "github.com/zain-sajid/haptics/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/zain-sajid/haptics/server")

var ErrSessionClosed = errors.New("session closed")

// Outcome says what a call to Play did.
// Only OutcomeFailed comes with an error.
type Outcome int

const (
	OutcomeStarted     Outcome = iota // Idle -> Playing, reset timer scheduled
	OutcomeBusy                       // already Playing, ignored
	OutcomeUnsupported                // no actuator, ignored
	OutcomeEmpty                      // pattern has no events, rejected
	OutcomeFailed                     // engine compile/start failed, back to Idle
	OutcomeClosed                     // session closed, ignored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStarted:
		return "started"
	case OutcomeBusy:
		return "busy"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EngineError wraps a compile or start failure
type EngineError struct {
	Op      string // "compile" or "start"
	Pattern string
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s of %q failed: %v", e.Op, e.Pattern, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Transition is one state change of a session
type Transition struct {
	Session   string
	Pattern   string
	Events    int
	From      Ht.SessionState
	To        Ht.SessionState
	At        time.Time
	StartedAt time.Time // start of the cycle this transition belongs to
	Err       error     // set when a cycle ends because of a failure or Close
}

// Observer is told about every transition, in order.
// Observers run synchronously and must not call Play.
type Observer func(Transition)

// Session is the play/stop lifecycle of one trigger control.
// It borrows the engine and never closes it.
type Session struct {
	MU     sync.Mutex
	ID     string
	Engine Hp.Engine
	Clock  Clock

	state     Ht.SessionState
	cycle     uint64
	pattern   string
	events    int
	startedAt time.Time
	timer     Timer
	done      chan struct{}
	closed    bool

	notifyMU  sync.Mutex // orders observer delivery
	observers []Observer
}

func NewSession(id string, engine Hp.Engine) *Session {
	return &Session{
		ID:     id,
		Engine: engine,
		Clock:  WallClock,
	}
}

// State is Idle or Playing
func (s *Session) State() Ht.SessionState {
	s.MU.Lock()
	defer s.MU.Unlock()
	return s.state
}

// Observe registers fn for every later transition
func (s *Session) Observe(fn Observer) {
	s.notifyMU.Lock()
	defer s.notifyMU.Unlock()
	s.observers = append(s.observers, fn)
}

// Play starts the pattern if the session is Idle and the engine has an
// actuator, otherwise nothing happens. The session shows Playing before
// the engine is touched. If compile or start fails it returns to Idle
// at once and the error is reported, without retry. On success it
// returns to Idle after p.Duration of wall time. That reset is not
// tied to the hardware: if the process is suspended mid pattern the
// state can disagree with what the actuator is doing.
func (s *Session) Play(ctx context.Context, p Ht.HapticPattern) (Outcome, error) {
	_, span := tracer.Start(ctx, "session.play", trace.WithAttributes(
		attribute.String("haptics.session", s.ID),
		attribute.String("haptics.pattern", p.Name),
		attribute.Int("haptics.events", len(p.Events)),
	))
	defer span.End()

	s.MU.Lock()
	if outcome, ignored := s.gateLocked(p); ignored {
		s.MU.Unlock()
		slog.Debug("Play ignored",
			slog.String("session", s.ID),
			slog.String("pattern", p.Name),
			slog.String("outcome", outcome.String()))
		span.SetAttributes(attribute.String("haptics.outcome", outcome.String()))
		return outcome, nil
	}

	clock := s.clock()
	s.cycle++
	cycle := s.cycle
	s.state = Ht.Playing
	s.pattern = p.Name
	s.events = len(p.Events)
	s.startedAt = clock.Now()
	s.done = make(chan struct{})
	s.timer = nil
	s.deliverLocked(Transition{
		From:      Ht.Idle,
		To:        Ht.Playing,
		At:        s.startedAt,
		StartedAt: s.startedAt,
	})

	op := "compile"
	h, err := s.Engine.Compile(p)
	if err == nil {
		op = "start"
		err = s.Engine.Start(h, 0)
	}
	if err != nil {
		ee := &EngineError{Op: op, Pattern: p.Name, Err: err}
		slog.Error("Failed to play haptic pattern",
			slog.String("session", s.ID),
			slog.String("pattern", p.Name),
			slog.Any("error", ee))
		span.RecordError(ee)
		span.SetStatus(codes.Error, ee.Error())
		s.finish(cycle, ee)
		return OutcomeFailed, ee
	}

	s.MU.Lock()
	if s.state == Ht.Playing && s.cycle == cycle {
		s.timer = clock.AfterFunc(p.Duration, func() {
			s.finish(cycle, nil)
		})
	}
	s.MU.Unlock()

	span.SetAttributes(
		attribute.String("haptics.outcome", OutcomeStarted.String()),
		attribute.String("haptics.duration", p.Duration.String()))
	slog.Info("Playing haptic pattern",
		slog.String("session", s.ID),
		slog.String("pattern", p.Name),
		slog.Int("events", len(p.Events)),
		slog.Duration("duration", p.Duration))
	return OutcomeStarted, nil
}

// gateLocked decides whether a play request is ignored
func (s *Session) gateLocked(p Ht.HapticPattern) (Outcome, bool) {
	switch {
	case s.closed:
		return OutcomeClosed, true
	case s.state == Ht.Playing:
		return OutcomeBusy, true
	case s.Engine == nil || !s.Engine.Supported():
		return OutcomeUnsupported, true
	case len(p.Events) == 0:
		return OutcomeEmpty, true
	}
	return OutcomeStarted, false
}

// finish moves the given cycle from Playing to Idle.
// A stale cycle is ignored so a reset can only happen once.
func (s *Session) finish(cycle uint64, err error) bool {
	s.MU.Lock()
	if s.state != Ht.Playing || s.cycle != cycle {
		s.MU.Unlock()
		return false
	}

	s.state = Ht.Idle
	s.timer = nil
	close(s.done)
	s.deliverLocked(Transition{
		From:      Ht.Playing,
		To:        Ht.Idle,
		At:        s.clock().Now(),
		StartedAt: s.startedAt,
		Err:       err,
	})
	return true
}

// deliverLocked is entered with MU held and returns with it released.
// notifyMU is taken before MU is dropped so observers see
// transitions in the order they happened.
func (s *Session) deliverLocked(tr Transition) {
	tr.Session = s.ID
	tr.Pattern = s.pattern
	tr.Events = s.events

	s.notifyMU.Lock()
	s.MU.Unlock()
	defer s.notifyMU.Unlock()

	for _, fn := range s.observers {
		fn(tr)
	}
}

// Wait blocks until the session is Idle
func (s *Session) Wait(ctx context.Context) error {
	s.MU.Lock()
	if s.state == Ht.Idle {
		s.MU.Unlock()
		return nil
	}
	done := s.done
	s.MU.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels a pending reset and ignores every later Play.
// The engine keeps whatever it is already playing.
func (s *Session) Close() {
	s.MU.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	cycle := s.cycle
	s.MU.Unlock()

	s.finish(cycle, ErrSessionClosed)
}

// SessionView is a read-only copy for the trigger surface
type SessionView struct {
	ID        string
	Pattern   string
	State     Ht.SessionState
	StartedAt time.Time
}

func (s *Session) Snapshot() SessionView {
	s.MU.Lock()
	defer s.MU.Unlock()
	return SessionView{
		ID:        s.ID,
		Pattern:   s.pattern,
		State:     s.state,
		StartedAt: s.startedAt,
	}
}

func (s *Session) clock() Clock {
	if s.Clock == nil {
		return WallClock
	}
	return s.Clock
}

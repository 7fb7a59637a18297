package haptics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	Hp "github.com/zain-sajid/haptics/plugin"
	Ht "github.com/zain-sajid/haptics/types"
)

// Board holds one session per catalog pattern.
// All of them share a single engine, which the Board owns.
// History goes to Recorder when one is attached.
type Board struct {
	MU       sync.RWMutex
	Engine   Hp.Engine
	Recorder Hp.Recorder
	Sessions map[string]*Session
	order    []string
}

// NewBoard creates an Idle session for every catalog pattern
func NewBoard(engine Hp.Engine, recorder Hp.Recorder) *Board {
	b := &Board{
		Engine:   engine,
		Recorder: recorder,
		Sessions: make(map[string]*Session),
	}

	for _, name := range PatternNames() {
		s := NewSession(name, engine)
		s.Observe(b.record)
		b.Sessions[name] = s
		b.order = append(b.order, name)
	}

	return b
}

// Session returns the session for a catalog pattern
func (b *Board) Session(name string) (*Session, error) {
	b.MU.RLock()
	defer b.MU.RUnlock()

	s, ok := b.Sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	}
	return s, nil
}

// Play builds the named pattern and plays it on its session
func (b *Board) Play(ctx context.Context, name string) (Outcome, error) {
	s, err := b.Session(name)
	if err != nil {
		return OutcomeFailed, err
	}
	p, err := BuildPattern(name)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.Play(ctx, p)
}

// Pattern builds the named pattern without playing it
func (b *Board) Pattern(name string) (Ht.HapticPattern, error) {
	if _, err := b.Session(name); err != nil {
		return Ht.HapticPattern{}, err
	}
	return BuildPattern(name)
}

// State is the current state of the named session
func (b *Board) State(name string) (Ht.SessionState, error) {
	s, err := b.Session(name)
	if err != nil {
		return Ht.Idle, err
	}
	return s.State(), nil
}

// Wait blocks until the named session is Idle
func (b *Board) Wait(ctx context.Context, name string) error {
	s, err := b.Session(name)
	if err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Observe registers fn on every session
func (b *Board) Observe(fn Observer) {
	b.MU.RLock()
	defer b.MU.RUnlock()
	for _, name := range b.order {
		b.Sessions[name].Observe(fn)
	}
}

// Snapshot lists every session in catalog order
func (b *Board) Snapshot() []SessionView {
	b.MU.RLock()
	defer b.MU.RUnlock()

	views := make([]SessionView, 0, len(b.order))
	for _, name := range b.order {
		views = append(views, b.Sessions[name].Snapshot())
	}
	return views
}

// Trigger plays a one-shot feedback effect straight on the engine.
// Effects have no session, so they are never debounced.
func (b *Board) Trigger(name string) error {
	fx, err := LookupEffect(name)
	if err != nil {
		return err
	}
	if b.Engine == nil || !b.Engine.Supported() {
		slog.Debug("Effect ignored, haptics unsupported", slog.String("effect", name))
		return nil
	}

	h, err := b.Engine.Compile(fx.Pattern)
	if err != nil {
		slog.Error("Failed to compile effect", slog.String("effect", name), slog.Any("error", err))
		return &EngineError{Op: "compile", Pattern: name, Err: err}
	}
	if err := b.Engine.Start(h, 0); err != nil {
		slog.Error("Failed to start effect", slog.String("effect", name), slog.Any("error", err))
		return &EngineError{Op: "start", Pattern: name, Err: err}
	}
	return nil
}

// record writes one history entry per finished cycle
func (b *Board) record(tr Transition) {
	if b.Recorder == nil || tr.To != Ht.Idle {
		return
	}

	rec := &Ht.PlaybackRecord{
		ID:        uuid.NewString(),
		Session:   tr.Session,
		Pattern:   tr.Pattern,
		Events:    tr.Events,
		Outcome:   "completed",
		StartedAt: tr.StartedAt,
		EndedAt:   tr.At,
	}
	switch {
	case errors.Is(tr.Err, ErrSessionClosed):
		rec.Outcome = "closed"
	case tr.Err != nil:
		rec.Outcome = "failed"
		rec.Error = tr.Err.Error()
	}

	if err := b.Recorder.WriteRecord(rec); err != nil {
		slog.Error("Failed to record playback",
			slog.String("session", tr.Session),
			slog.Any("error", err))
	}
}

// History returns records started in [start, end)
func (b *Board) History(start, end time.Time) ([]*Ht.PlaybackRecord, error) {
	if b.Recorder == nil {
		return nil, nil
	}
	if err := b.Recorder.Flush(); err != nil {
		return nil, err
	}
	return b.Recorder.QueryRange(start, end)
}

// Close closes every session, then the engine and the recorder
func (b *Board) Close() error {
	b.MU.RLock()
	for _, name := range b.order {
		b.Sessions[name].Close()
	}
	b.MU.RUnlock()

	var errs []error
	if b.Engine != nil {
		if err := b.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("engine close: %w", err))
		}
	}
	if b.Recorder != nil {
		if err := b.Recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("recorder close: %w", err))
		}
	}
	return errors.Join(errs...)
}

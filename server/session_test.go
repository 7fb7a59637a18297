package haptics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	Hp "github.com/zain-sajid/haptics/plugin"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
	"go.uber.org/goleak"
)

func makeTestSession(t *testing.T) (*Hs.Session, *fakeEngine, *manualClock, *transitionLog) {
	t.Helper()
	engine := newFakeEngine()
	clock := newManualClock()
	log := &transitionLog{}

	s := Hs.NewSession("test", engine)
	s.Clock = clock
	s.Observe(log.observe)
	return s, engine, clock, log
}

func TestSession_Play(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	t.Run("Starts Idle", func(t *testing.T) {
		s, _, _, _ := makeTestSession(t)
		assertState(t, s.State(), Ht.Idle)
	})

	t.Run("Playing until the reset fires, then Idle", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		p := Hs.BuildMaxIntensityPattern()

		outcome, err := s.Play(ctx, p)
		assertError(t, err, nil)
		assertOutcome(t, outcome, Hs.OutcomeStarted)
		assertState(t, s.State(), Ht.Playing)
		assertInt(t, engine.Started(), 1)
		assertInt(t, clock.Pending(), 1)

		clock.Advance(p.Duration - time.Millisecond)
		assertState(t, s.State(), Ht.Playing)

		clock.Advance(time.Millisecond)
		assertState(t, s.State(), Ht.Idle)

		trs := log.list()
		assertInt(t, len(trs), 2)
		assertState(t, trs[0].To, Ht.Playing)
		assertState(t, trs[1].To, Ht.Idle)
		assertError(t, trs[1].Err, nil)
		assertDuration(t, trs[1].At.Sub(trs[1].StartedAt), p.Duration)
	})

	t.Run("Shows Playing before the engine starts", func(t *testing.T) {
		s, engine, _, _ := makeTestSession(t)
		var during Ht.SessionState
		engine.onStart = func() { during = s.State() }

		s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertState(t, during, Ht.Playing)
	})

	t.Run("Taps while Playing are ignored", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		p := Hs.BuildMaxIntensityPattern()
		s.Play(ctx, p)

		for i := 0; i < 3; i++ {
			outcome, err := s.Play(ctx, p)
			assertError(t, err, nil)
			assertOutcome(t, outcome, Hs.OutcomeBusy)
		}

		assertInt(t, engine.Started(), 1)
		assertInt(t, clock.Pending(), 1)
		assertInt(t, len(log.list()), 1)
	})

	t.Run("Resets exactly once", func(t *testing.T) {
		s, _, clock, log := makeTestSession(t)
		p := Hs.BuildMaxIntensityPattern()
		s.Play(ctx, p)

		clock.Advance(p.Duration)
		clock.Advance(p.Duration)
		assertInt(t, len(log.list()), 2)
	})

	t.Run("Can play again after the reset", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		p := Hs.BuildMaxIntensityPattern()

		s.Play(ctx, p)
		clock.Advance(p.Duration)
		outcome, _ := s.Play(ctx, p)

		assertOutcome(t, outcome, Hs.OutcomeStarted)
		assertInt(t, engine.Started(), 2)
		assertInt(t, len(log.list()), 3)
	})

	t.Run("Unsupported hardware is a silent no-op", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		engine.supported = false

		outcome, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertError(t, err, nil)
		assertOutcome(t, outcome, Hs.OutcomeUnsupported)
		assertState(t, s.State(), Ht.Idle)
		assertInt(t, engine.Compiled(), 0)
		assertInt(t, clock.Pending(), 0)
		assertInt(t, len(log.list()), 0)
	})

	t.Run("A nil engine is unsupported", func(t *testing.T) {
		s := Hs.NewSession("nil", nil)
		outcome, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertError(t, err, nil)
		assertOutcome(t, outcome, Hs.OutcomeUnsupported)
	})

	t.Run("An empty pattern is rejected without touching the engine", func(t *testing.T) {
		s, engine, clock, _ := makeTestSession(t)
		p, _ := Hs.BuildRingingPattern(0, Hs.DefaultRingDuration, Hs.DefaultRingGap)

		outcome, err := s.Play(ctx, p)
		assertError(t, err, nil)
		assertOutcome(t, outcome, Hs.OutcomeEmpty)
		assertState(t, s.State(), Ht.Idle)
		assertInt(t, engine.Compiled(), 0)
		assertInt(t, clock.Pending(), 0)
	})

	t.Run("A compile failure reverts to Idle at once", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		boom := errors.New("compile boom")
		engine.compileErr = boom

		outcome, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertOutcome(t, outcome, Hs.OutcomeFailed)
		assertError(t, err, boom)
		assertState(t, s.State(), Ht.Idle)
		assertInt(t, engine.Started(), 0)
		assertInt(t, clock.Pending(), 0)

		var ee *Hs.EngineError
		if !errors.As(err, &ee) {
			t.Fatalf("expected *EngineError, got %T", err)
		}
		assertString(t, ee.Op, "compile")
		assertString(t, ee.Pattern, Hs.PatternMaxIntensity)

		trs := log.list()
		assertInt(t, len(trs), 2)
		assertError(t, trs[1].Err, boom)
	})

	t.Run("A start failure is reported once and not retried", func(t *testing.T) {
		s, engine, clock, log := makeTestSession(t)
		boom := errors.New("start boom")
		engine.startErr = boom

		_, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertError(t, err, boom)
		assertState(t, s.State(), Ht.Idle)
		assertInt(t, engine.Started(), 1)

		clock.Advance(time.Minute)
		failures := 0
		for _, tr := range log.list() {
			if tr.Err != nil {
				failures++
			}
		}
		assertInt(t, failures, 1)
		assertInt(t, engine.Started(), 1)
	})

	t.Run("Unsupported from the engine at start reverts too", func(t *testing.T) {
		s, engine, _, _ := makeTestSession(t)
		engine.startErr = Hp.ErrUnsupported

		outcome, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertOutcome(t, outcome, Hs.OutcomeFailed)
		assertError(t, err, Hp.ErrUnsupported)
		assertState(t, s.State(), Ht.Idle)
	})
}

func TestSession_Concurrent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, engine, clock, _ := makeTestSession(t)
	p := Hs.BuildMaxIntensityPattern()

	var wg sync.WaitGroup
	var mu sync.Mutex
	started := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, _ := s.Play(context.Background(), p)
			if outcome == Hs.OutcomeStarted {
				mu.Lock()
				started++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assertInt(t, started, 1)
	assertInt(t, engine.Started(), 1)
	assertInt(t, clock.Pending(), 1)
}

func TestSession_Wait(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	t.Run("Returns at once when Idle", func(t *testing.T) {
		s, _, _, _ := makeTestSession(t)
		assertError(t, s.Wait(ctx), nil)
	})

	t.Run("Returns when the reset fires", func(t *testing.T) {
		s, _, clock, _ := makeTestSession(t)
		p := Hs.BuildMaxIntensityPattern()
		s.Play(ctx, p)

		done := make(chan error, 1)
		go func() { done <- s.Wait(ctx) }()

		clock.Advance(p.Duration)
		select {
		case err := <-done:
			assertError(t, err, nil)
		case <-time.After(time.Second):
			t.Fatal("Wait did not return after the reset")
		}
	})

	t.Run("Gives up with the context", func(t *testing.T) {
		s, _, _, _ := makeTestSession(t)
		s.Play(ctx, Hs.BuildMaxIntensityPattern())

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		assertError(t, s.Wait(cctx), context.DeadlineExceeded)
	})
}

func TestSession_Close(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx := context.Background()

	t.Run("Ends a playing cycle and cancels the reset", func(t *testing.T) {
		s, _, clock, log := makeTestSession(t)
		s.Play(ctx, Hs.BuildMaxIntensityPattern())

		s.Close()
		assertState(t, s.State(), Ht.Idle)
		assertInt(t, clock.Pending(), 0)

		trs := log.list()
		assertInt(t, len(trs), 2)
		assertError(t, trs[1].Err, Hs.ErrSessionClosed)
	})

	t.Run("Ignores every later play", func(t *testing.T) {
		s, engine, _, _ := makeTestSession(t)
		s.Close()

		outcome, err := s.Play(ctx, Hs.BuildMaxIntensityPattern())
		assertError(t, err, nil)
		assertOutcome(t, outcome, Hs.OutcomeClosed)
		assertInt(t, engine.Compiled(), 0)
	})

	t.Run("Closing an Idle session sends nothing", func(t *testing.T) {
		s, _, _, log := makeTestSession(t)
		s.Close()
		s.Close()
		assertInt(t, len(log.list()), 0)
	})
}

func TestSession_Snapshot(t *testing.T) {
	s, _, clock, _ := makeTestSession(t)
	start := clock.Now()
	s.Play(context.Background(), Hs.BuildMaxIntensityPattern())

	view := s.Snapshot()
	assertString(t, view.ID, "test")
	assertString(t, view.Pattern, Hs.PatternMaxIntensity)
	assertState(t, view.State, Ht.Playing)
	if !view.StartedAt.Equal(start) {
		t.Errorf("got start %v, want %v", view.StartedAt, start)
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		outcome Hs.Outcome
		want    string
	}{
		{Hs.OutcomeStarted, "started"},
		{Hs.OutcomeBusy, "busy"},
		{Hs.OutcomeUnsupported, "unsupported"},
		{Hs.OutcomeEmpty, "empty"},
		{Hs.OutcomeFailed, "failed"},
		{Hs.OutcomeClosed, "closed"},
		{Hs.Outcome(42), "unknown"},
	}
	for _, tt := range tests {
		assertString(t, tt.outcome.String(), tt.want)
	}
}

package haptics_test

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	Hp "github.com/zain-sajid/haptics/plugin"
	Hs "github.com/zain-sajid/haptics/server"
	Ht "github.com/zain-sajid/haptics/types"
)

// manualClock only fires timers when Advance is called
type manualClock struct {
	MU     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.MU.Lock()
	defer c.MU.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Hs.Timer {
	c.MU.Lock()
	defer c.MU.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer now due
func (c *manualClock) Advance(d time.Duration) {
	c.MU.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.MU.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that have neither fired nor been stopped
func (c *manualClock) Pending() int {
	c.MU.Lock()
	defer c.MU.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.MU.Lock()
	defer t.clock.MU.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeHandle struct {
	pattern Ht.HapticPattern
}

func (h fakeHandle) Span() time.Duration { return Hs.EventSpan(h.pattern) }

// fakeEngine counts calls and fails on demand
type fakeEngine struct {
	MU         sync.Mutex
	supported  bool
	compileErr error
	startErr   error
	compiled   []string
	started    int
	closed     bool
	onStart    func()
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{supported: true}
}

func (fe *fakeEngine) Supported() bool {
	fe.MU.Lock()
	defer fe.MU.Unlock()
	return fe.supported
}

func (fe *fakeEngine) Compile(p Ht.HapticPattern) (Hp.Handle, error) {
	fe.MU.Lock()
	defer fe.MU.Unlock()
	fe.compiled = append(fe.compiled, p.Name)
	if fe.compileErr != nil {
		return nil, fe.compileErr
	}
	return fakeHandle{pattern: p}, nil
}

func (fe *fakeEngine) Start(h Hp.Handle, at time.Duration) error {
	fe.MU.Lock()
	hook := fe.onStart
	fe.started++
	err := fe.startErr
	fe.MU.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (fe *fakeEngine) Close() error {
	fe.MU.Lock()
	defer fe.MU.Unlock()
	fe.closed = true
	return nil
}

func (fe *fakeEngine) Type() string { return "fake" }

func (fe *fakeEngine) Started() int {
	fe.MU.Lock()
	defer fe.MU.Unlock()
	return fe.started
}

func (fe *fakeEngine) Compiled() int {
	fe.MU.Lock()
	defer fe.MU.Unlock()
	return len(fe.compiled)
}

// memRecorder keeps history in a slice
type memRecorder struct {
	MU       sync.Mutex
	records  []*Ht.PlaybackRecord
	flushes  int
	closed   bool
	writeErr error
}

func (mr *memRecorder) WriteRecord(r *Ht.PlaybackRecord) error {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	if mr.writeErr != nil {
		return mr.writeErr
	}
	mr.records = append(mr.records, r)
	return nil
}

func (mr *memRecorder) WriteBatch(rs []*Ht.PlaybackRecord) error {
	for _, r := range rs {
		if err := mr.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

func (mr *memRecorder) QueryRange(start, end time.Time) ([]*Ht.PlaybackRecord, error) {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	var out []*Ht.PlaybackRecord
	for _, r := range mr.records {
		if !r.StartedAt.Before(start) && r.StartedAt.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (mr *memRecorder) Flush() error {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	mr.flushes++
	return nil
}

func (mr *memRecorder) Flushes() int {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	return mr.flushes
}

func (mr *memRecorder) Records() []*Ht.PlaybackRecord {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	out := make([]*Ht.PlaybackRecord, len(mr.records))
	copy(out, mr.records)
	return out
}

func (mr *memRecorder) Close() error {
	mr.MU.Lock()
	defer mr.MU.Unlock()
	mr.closed = true
	return nil
}

func (mr *memRecorder) Type() string { return "memory" }

// transitionLog collects observer calls
type transitionLog struct {
	MU  sync.Mutex
	all []Hs.Transition
}

func (tl *transitionLog) observe(tr Hs.Transition) {
	tl.MU.Lock()
	defer tl.MU.Unlock()
	tl.all = append(tl.all, tr)
}

func (tl *transitionLog) list() []Hs.Transition {
	tl.MU.Lock()
	defer tl.MU.Unlock()
	out := make([]Hs.Transition, len(tl.all))
	copy(out, tl.all)
	return out
}

func assertError(t testing.TB, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %q want %q", got, want)
	}
}

func assertGotError(t testing.TB, got error) {
	t.Helper()
	if got == nil {
		t.Errorf("Expected an error but got %q", got)
	}
}

func assertInt(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %d, want %d", got, want)
	}
}

func assertString(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func assertStringContains(t *testing.T, full, want string) {
	t.Helper()
	if !strings.Contains(full, want) {
		t.Errorf("Did not find %q, expected string contains %q", want, full)
	}
}

func assertDuration(t *testing.T, got, want time.Duration) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct duration, got %v, want %v", got, want)
	}
}

func assertFloat(t *testing.T, got, want float64) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct value, got %v, want %v", got, want)
	}
}

func assertState(t *testing.T, got, want Ht.SessionState) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct state, got %s, want %s", Hs.StateString(got), Hs.StateString(want))
	}
}

func assertOutcome(t *testing.T, got, want Hs.Outcome) {
	t.Helper()
	if got != want {
		t.Errorf("did not get correct outcome, got %s, want %s", got, want)
	}
}

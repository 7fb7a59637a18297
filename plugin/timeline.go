package plugin

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// TransientWidth is how long a Transient holds the actuator
// on engines that can only express on/off edges
const TransientWidth = 20 * time.Millisecond

// Cue is one edge of an event on the timeline
type Cue struct {
	At        time.Duration
	Event     int // index into the source pattern
	On        bool
	Kind      Ht.EventKind
	Intensity float64
	Sharpness float64
}

// Timeline is the compiled form of a pattern,
// every event becomes an On cue and an Off cue.
type Timeline struct {
	Pattern string
	Cues    []Cue
	Length  time.Duration
}

func (tl *Timeline) Span() time.Duration { return tl.Length }

// Compile checks every event and expands it into sorted cues.
// Events may arrive in any order, the output is chronological
// with Off cues ahead of On cues at the same instant.
func Compile(p Ht.HapticPattern) (*Timeline, error) {
	tl := &Timeline{
		Pattern: p.Name,
		Cues:    make([]Cue, 0, 2*len(p.Events)),
	}

	for i, ev := range p.Events {
		if err := checkEvent(ev); err != nil {
			return nil, fmt.Errorf("event %d of %q: %w", i, p.Name, err)
		}

		hold := ev.Duration
		if ev.Kind == Ht.Transient {
			hold = TransientWidth
		}

		on := Cue{At: ev.Offset, Event: i, On: true, Kind: ev.Kind, Intensity: ev.Intensity, Sharpness: ev.Sharpness}
		off := on
		off.On = false
		off.At = ev.Offset + hold
		tl.Cues = append(tl.Cues, on, off)

		if off.At > tl.Length {
			tl.Length = off.At
		}
	}

	slices.SortStableFunc(tl.Cues, func(a, b Cue) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		case a.On == b.On:
			return 0
		case !a.On:
			return -1
		default:
			return 1
		}
	})

	return tl, nil
}

// checkEvent is the engine side guard, it mirrors construction
// rules so hand-built patterns cannot reach the device
func checkEvent(ev Ht.HapticEvent) error {
	switch {
	case math.IsNaN(ev.Intensity) || ev.Intensity < 0 || ev.Intensity > 1:
		return fmt.Errorf("intensity %v out of range", ev.Intensity)
	case math.IsNaN(ev.Sharpness) || ev.Sharpness < 0 || ev.Sharpness > 1:
		return fmt.Errorf("sharpness %v out of range", ev.Sharpness)
	case ev.Offset < 0:
		return fmt.Errorf("negative offset %v", ev.Offset)
	case ev.Kind == Ht.Continuous && ev.Duration <= 0:
		return fmt.Errorf("continuous event needs a duration")
	case ev.Kind == Ht.Transient && ev.Duration != 0:
		return fmt.Errorf("transient event cannot have a duration")
	}
	return nil
}

// runner plays timelines on goroutines for an engine,
// halt() stops anything in flight and waits for it.
type runner struct {
	MU   sync.Mutex
	WG   sync.WaitGroup
	stop chan struct{}
}

func (r *runner) stopChan() chan struct{} {
	r.MU.Lock()
	defer r.MU.Unlock()
	if r.stop == nil {
		r.stop = make(chan struct{})
	}
	return r.stop
}

// spawn fires each cue at its wall clock time, starting /at/ from now
func (r *runner) spawn(tl *Timeline, at time.Duration, fire func(Cue)) {
	stop := r.stopChan()
	start := time.Now().Add(at)

	r.WG.Add(1)
	go func() {
		defer r.WG.Done()
		for _, c := range tl.Cues {
			if wait := time.Until(start.Add(c.At)); wait > 0 {
				t := time.NewTimer(wait)
				select {
				case <-t.C:
				case <-stop:
					t.Stop()
					return
				}
			} else {
				select {
				case <-stop:
					return
				default:
				}
			}
			fire(c)
		}
	}()
}

func (r *runner) halt() {
	r.MU.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.MU.Unlock()
	r.WG.Wait()
}

// wait blocks until every spawned timeline has finished
func (r *runner) wait() {
	r.WG.Wait()
}

// asTimeline unwraps a Handle compiled by this package
func asTimeline(h Handle, engine string) (*Timeline, error) {
	tl, ok := h.(*Timeline)
	if !ok || tl == nil {
		return nil, fmt.Errorf("%s engine cannot start handle of type %T", engine, h)
	}
	return tl, nil
}

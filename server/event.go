package haptics

import (
	"fmt"
	"math"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// InvalidEventError is a construction time failure.
// The fixed recipes never produce one, so seeing it means a recipe is wrong.
type InvalidEventError struct {
	Event  Ht.HapticEvent
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid haptic event at %v: %s", e.Event.Offset, e.Reason)
}

// NewHapticEvent validates every field before handing back the event
func NewHapticEvent(kind Ht.EventKind, intensity, sharpness float64, offset, duration time.Duration) (Ht.HapticEvent, error) {
	ev := Ht.HapticEvent{
		Kind:      kind,
		Intensity: intensity,
		Sharpness: sharpness,
		Offset:    offset,
		Duration:  duration,
	}

	invalid := func(reason string) (Ht.HapticEvent, error) {
		return Ht.HapticEvent{}, &InvalidEventError{Event: ev, Reason: reason}
	}

	switch {
	case !unit(intensity):
		return invalid(fmt.Sprintf("intensity %v outside [0,1]", intensity))
	case !unit(sharpness):
		return invalid(fmt.Sprintf("sharpness %v outside [0,1]", sharpness))
	case offset < 0:
		return invalid("negative start offset")
	}

	switch kind {
	case Ht.Transient:
		if duration != 0 {
			return invalid("transient events have no duration")
		}
	case Ht.Continuous:
		if duration <= 0 {
			return invalid("continuous events need a positive duration")
		}
	default:
		return invalid(fmt.Sprintf("unknown event kind %d", kind))
	}

	return ev, nil
}

// NewTransient is a brief pulse at offset
func NewTransient(intensity, sharpness float64, offset time.Duration) (Ht.HapticEvent, error) {
	return NewHapticEvent(Ht.Transient, intensity, sharpness, offset, 0)
}

// NewContinuous is a sustained vibration starting at offset
func NewContinuous(intensity, sharpness float64, offset, duration time.Duration) (Ht.HapticEvent, error) {
	return NewHapticEvent(Ht.Continuous, intensity, sharpness, offset, duration)
}

// mustEvent is for hand-authored constant recipes only
func mustEvent(ev Ht.HapticEvent, err error) Ht.HapticEvent {
	if err != nil {
		panic(err)
	}
	return ev
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// EventSpan is the end of the last event, computed, never declared
func EventSpan(p Ht.HapticPattern) time.Duration {
	var span time.Duration
	for _, ev := range p.Events {
		if end := ev.Offset + ev.Duration; end > span {
			span = end
		}
	}
	return span
}

// KindString names an event kind for logs and the API
func KindString(k Ht.EventKind) string {
	switch k {
	case Ht.Transient:
		return "transient"
	case Ht.Continuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// StateString names a session state for logs and the API
func StateString(s Ht.SessionState) string {
	switch s {
	case Ht.Idle:
		return "idle"
	case Ht.Playing:
		return "playing"
	default:
		return "unknown"
	}
}

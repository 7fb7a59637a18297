package types

/*

	These are the "immutable" core types of the haptics sequencer,
	provided for cross-package use (e.g. Plugins) and testing.

	There are no functions defined here.
	Struct constructors are housed in their own packages,
	events are validated by the server package on construction.

*/

import "time"

// EventKind says whether the actuator taps or buzzes
type EventKind int

const (
	Transient  EventKind = iota // brief pulse, no duration
	Continuous                  // sustained vibration, requires a duration
)

// HapticEvent is a single timed instruction to the actuator.
// Offset is relative to the start of the pattern.
type HapticEvent struct {
	Kind      EventKind
	Intensity float64       // 0.0 - 1.0, perceived strength
	Sharpness float64       // 0.0 - 1.0, perceived crispness
	Offset    time.Duration // start time from pattern start
	Duration  time.Duration // zero for Transient
}

// HapticPattern is an ordered collection of events forming one effect.
// Duration is how long a session stays Playing for this pattern,
// builders always derive it from their parameters.
type HapticPattern struct {
	Name     string
	Events   []HapticEvent
	Duration time.Duration
}

// SessionState is the play/stop lifecycle of one trigger control
type SessionState int

const (
	Idle    SessionState = iota // initial, and terminal for each cycle
	Playing                     // only entered from Idle
)

// PlaybackRecord is written once per finished cycle,
// when the reset timer fires, the engine fails or the session closes.
type PlaybackRecord struct {
	ID        string
	Session   string
	Pattern   string
	Events    int
	Outcome   string // "completed", "failed" or "closed"
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

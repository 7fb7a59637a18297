package plugin

/*

	The Adapter sits aside the sequencer core
	Contains core interfaces for Plugin

*/

import (
	"errors"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// ErrUnsupported is returned by engines that have no actuator to drive
var ErrUnsupported = errors.New("haptics not supported on this hardware")

// Handle is a compiled pattern, opaque to callers.
// Only the engine that compiled it knows how to start it.
type Handle interface {
	Span() time.Duration // wall time from first to last cue
}

// Engine owns the connection to the actuator.
// It is shared by every session and never closed by one.
type Engine interface {
	Supported() bool                            // single capability gate
	Compile(p Ht.HapticPattern) (Handle, error) // events may arrive in any order
	Start(h Handle, at time.Duration) error     // begin playback after /at/
	Close() error                               // stop playback and release the device
	Type() string                               // ID for engine
}

// Recorder can be used to define a place for playback history to go,
// record-by-record or in batches if supported by the output type.
type Recorder interface {
	WriteRecord(r *Ht.PlaybackRecord) error                        // Write singleton record
	WriteBatch(rs []*Ht.PlaybackRecord) error                      // Write batches of records
	QueryRange(start, end time.Time) ([]*Ht.PlaybackRecord, error) // Time range query tool
	Flush() error                                                  // Flush any buffered data
	Close() error                                                  // Close the recorder and release resources
	Type() string                                                  // ID for output
}

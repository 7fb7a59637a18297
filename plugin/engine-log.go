package plugin

import (
	"log/slog"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// LogEngine writes each cue to the log instead of an actuator.
// This is the default on machines without haptics hardware.
type LogEngine struct {
	Logger *slog.Logger
	run    runner
}

func NewLogEngine(logger *slog.Logger) *LogEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEngine{Logger: logger}
}

func (le *LogEngine) Supported() bool { return true }

func (le *LogEngine) Compile(p Ht.HapticPattern) (Handle, error) {
	return Compile(p)
}

func (le *LogEngine) Start(h Handle, at time.Duration) error {
	tl, err := asTimeline(h, le.Type())
	if err != nil {
		return err
	}

	le.Logger.Info("Playing pattern",
		slog.String("pattern", tl.Pattern),
		slog.Int("cues", len(tl.Cues)),
		slog.Duration("span", tl.Length))

	le.run.spawn(tl, at, func(c Cue) {
		le.Logger.Debug("cue",
			slog.String("pattern", tl.Pattern),
			slog.Int("event", c.Event),
			slog.Bool("on", c.On),
			slog.Duration("at", c.At),
			slog.Float64("intensity", c.Intensity),
			slog.Float64("sharpness", c.Sharpness))
	})
	return nil
}

// Wait blocks until every started timeline has played out
func (le *LogEngine) Wait() { le.run.wait() }

func (le *LogEngine) Close() error {
	le.run.halt()
	return nil
}

func (le *LogEngine) Type() string { return "log" }

// NoEngine stands in for hardware without an actuator
type NoEngine struct{}

func (NoEngine) Supported() bool { return false }

func (NoEngine) Compile(p Ht.HapticPattern) (Handle, error) { return nil, ErrUnsupported }

func (NoEngine) Start(h Handle, at time.Duration) error { return ErrUnsupported }

func (NoEngine) Close() error { return nil }

func (NoEngine) Type() string { return "none" }

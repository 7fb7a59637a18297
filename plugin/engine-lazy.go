package plugin

import (
	"log/slog"
	"sync"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// LazyEngine connects to the real engine on first use and keeps
// that connection for the life of the process. If the factory fails
// the engine reports itself unsupported, so sessions ignore play requests.
type LazyEngine struct {
	Factory func() (Engine, error)
	Name    string

	once   sync.Once
	engine Engine
	err    error
}

func NewLazyEngine(name string, factory func() (Engine, error)) *LazyEngine {
	return &LazyEngine{Name: name, Factory: factory}
}

func (le *LazyEngine) connect() (Engine, error) {
	le.once.Do(func() {
		le.engine, le.err = le.Factory()
		if le.err != nil {
			slog.Error("Error creating haptic engine",
				slog.String("engine", le.Name),
				slog.Any("error", le.err))
			return
		}
		slog.Info("Haptic engine connected", slog.String("engine", le.engine.Type()))
	})
	return le.engine, le.err
}

func (le *LazyEngine) Supported() bool {
	e, err := le.connect()
	if err != nil {
		return false
	}
	return e.Supported()
}

func (le *LazyEngine) Compile(p Ht.HapticPattern) (Handle, error) {
	e, err := le.connect()
	if err != nil {
		return nil, ErrUnsupported
	}
	return e.Compile(p)
}

func (le *LazyEngine) Start(h Handle, at time.Duration) error {
	e, err := le.connect()
	if err != nil {
		return ErrUnsupported
	}
	return e.Start(h, at)
}

// Close only closes an engine that was actually connected
func (le *LazyEngine) Close() error {
	le.once.Do(func() {
		le.err = ErrUnsupported
	})
	if le.engine == nil {
		return nil
	}
	return le.engine.Close()
}

func (le *LazyEngine) Type() string { return le.Name }

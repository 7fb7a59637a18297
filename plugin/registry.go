package plugin

import (
	"fmt"
	"log/slog"
)

// EngineOptions carries what each engine factory may need
type EngineOptions struct {
	MIDIPort int
	MIDIRoot uint8
	Logger   *slog.Logger
}

// Engines is a global map of Engine factories by name.
var Engines = map[string]func(o EngineOptions) (Engine, error){
	"log": func(o EngineOptions) (Engine, error) {
		return NewLogEngine(o.Logger), nil
	},
	"midi": func(o EngineOptions) (Engine, error) {
		e, err := NewMIDIEngine(o.MIDIPort, o.MIDIRoot)
		if err != nil {
			return nil, err
		}
		return e, nil
	},
	"terminal": func(o EngineOptions) (Engine, error) {
		e, err := NewTerminalEngine()
		if err != nil {
			return nil, err
		}
		return e, nil
	},
	"none": func(o EngineOptions) (Engine, error) {
		return NoEngine{}, nil
	},
}

// EngineLookup returns a LazyEngine for the named factory,
// nothing is opened until the first session asks for it.
func EngineLookup(name string, o EngineOptions) (*LazyEngine, error) {
	factory, ok := Engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return NewLazyEngine(name, func() (Engine, error) {
		return factory(o)
	}), nil
}

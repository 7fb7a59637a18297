package plugin

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	Ht "github.com/zain-sajid/haptics/types"
)

const (
	meterRow    = 1
	meterGutter = 12 // width of the label column
)

// TerminalEngine draws the actuator on a terminal screen.
// Each active event lights the meter, the strongest one wins.
type TerminalEngine struct {
	MU     sync.Mutex
	Screen tcell.Screen
	active map[meterKey]Cue
	run    runner
}

type meterKey struct {
	pattern string
	event   int
}

func NewTerminalEngine() (*TerminalEngine, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("error", err))
		return nil, err
	}
	if err := screen.Init(); err != nil {
		slog.Error("Could not initialize screen", slog.Any("error", err))
		return nil, err
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()

	return NewTerminalEngineWithScreen(screen), nil
}

// NewTerminalEngineWithScreen uses an already initialized screen
func NewTerminalEngineWithScreen(s tcell.Screen) *TerminalEngine {
	return &TerminalEngine{
		Screen: s,
		active: make(map[meterKey]Cue),
	}
}

func (te *TerminalEngine) Supported() bool { return te.Screen != nil }

func (te *TerminalEngine) Compile(p Ht.HapticPattern) (Handle, error) {
	return Compile(p)
}

func (te *TerminalEngine) Start(h Handle, at time.Duration) error {
	if te.Screen == nil {
		return ErrUnsupported
	}
	tl, err := asTimeline(h, te.Type())
	if err != nil {
		return err
	}

	te.run.spawn(tl, at, func(c Cue) {
		te.Apply(tl.Pattern, c)
	})
	return nil
}

// Apply updates the active set with one cue and redraws the meter
func (te *TerminalEngine) Apply(pattern string, c Cue) {
	te.MU.Lock()
	defer te.MU.Unlock()

	key := meterKey{pattern: pattern, event: c.Event}
	if c.On {
		te.active[key] = c
	} else {
		delete(te.active, key)
	}

	var level, sharp float64
	for _, a := range te.active {
		if a.Intensity > level {
			level = a.Intensity
			sharp = a.Sharpness
		}
	}
	te.DrawMeter(level, sharp)
	te.Screen.Show()
}

// DrawMeter paints one row: a label and a bar scaled to the screen width.
// Sharper events draw in hotter colors.
func (te *TerminalEngine) DrawMeter(level, sharpness float64) {
	width, _ := te.Screen.Size()
	barW := width - meterGutter - 1
	if barW < 1 {
		barW = 1
	}
	filled := int(math.Round(level * float64(barW)))

	label := fmt.Sprintf("ACTUATOR %3d", int(math.Round(level*100)))
	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for i, r := range label {
		te.Screen.SetContent(i, meterRow, r, nil, labelStyle)
	}

	barStyle := tcell.StyleDefault.Foreground(SharpnessColor(sharpness))
	for x := 0; x < barW; x++ {
		r := ' '
		if x < filled {
			r = '█'
		}
		te.Screen.SetContent(meterGutter+x, meterRow, r, nil, barStyle)
	}
}

// SharpnessColor shades from soft blue to sharp red
func SharpnessColor(s float64) tcell.Color {
	switch {
	case s < 0.25:
		return tcell.ColorDodgerBlue
	case s < 0.5:
		return tcell.ColorMediumTurquoise
	case s < 0.75:
		return tcell.ColorDarkOrange
	default:
		return tcell.ColorRed
	}
}

// Wait blocks until every started timeline has played out
func (te *TerminalEngine) Wait() { te.run.wait() }

func (te *TerminalEngine) Close() error {
	te.run.halt()
	if te.Screen != nil {
		te.Screen.Fini()
	}
	return nil
}

func (te *TerminalEngine) Type() string { return "terminal" }

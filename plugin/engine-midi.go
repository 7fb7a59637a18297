//go:build !nomidi

package plugin

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const (
	midiChanContinuous uint8 = 0
	midiChanTransient  uint8 = 1
)

// MIDIEngine drives an actuator (or a synth standing in for one)
// over a MIDI port. Continuous events and Transients go out on
// separate channels so overlapping events never cut each other off.
type MIDIEngine struct {
	Port drivers.Out
	Send func(msg midi.Message) error
	Root uint8 // note for sharpness 0.0, sharpness 1.0 is an octave above
	run  runner
}

func NewMIDIEngine(port int, root uint8) (*MIDIEngine, error) {
	out, err := midi.OutPort(port)
	if err != nil {
		slog.Error("Error opening MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error opening MIDI port: %w", err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		slog.Error("Error sending to MIDI port", slog.Int("port", port))
		return nil, fmt.Errorf("error sending to MIDI port: %w", err)
	}

	slog.Info("MIDI engine opened",
		slog.String("port", out.String()),
		slog.Any("root", root))

	return &MIDIEngine{
		Port: out,
		Send: send,
		Root: root,
	}, nil
}

func (me *MIDIEngine) Supported() bool { return me.Send != nil }

func (me *MIDIEngine) Compile(p Ht.HapticPattern) (Handle, error) {
	return Compile(p)
}

func (me *MIDIEngine) Start(h Handle, at time.Duration) error {
	if me.Send == nil {
		return ErrUnsupported
	}
	tl, err := asTimeline(h, me.Type())
	if err != nil {
		return err
	}

	me.run.spawn(tl, at, func(c Cue) {
		if err := me.Send(me.CueMessage(c)); err != nil {
			slog.Error("MIDI cue failed",
				slog.String("pattern", tl.Pattern),
				slog.Int("event", c.Event),
				slog.Any("error", err))
		}
	})
	return nil
}

// CueMessage maps sharpness to pitch and intensity to velocity
func (me *MIDIEngine) CueMessage(c Cue) midi.Message {
	channel := midiChanContinuous
	if c.Kind == Ht.Transient {
		channel = midiChanTransient
	}
	note := me.Root + uint8(math.Round(c.Sharpness*12))

	if !c.On {
		return midi.NoteOff(channel, note)
	}
	velocity := 1 + uint8(math.Round(c.Intensity*126))
	return midi.NoteOn(channel, note, velocity)
}

// Wait blocks until every started timeline has played out
func (me *MIDIEngine) Wait() { me.run.wait() }

// Flush silences both channels
func (me *MIDIEngine) Flush() error {
	if me.Send == nil {
		return nil
	}
	if err := me.Send(midi.ControlChange(midiChanContinuous, midi.AllNotesOff, midi.Off)); err != nil {
		return err
	}
	return me.Send(midi.ControlChange(midiChanTransient, midi.AllNotesOff, midi.Off))
}

func (me *MIDIEngine) Close() error {
	me.run.halt()

	if err := me.Flush(); err != nil {
		slog.Error("MIDI flush on close failed", slog.Any("error", err))
	}

	if me.Port != nil {
		if err := me.Port.Close(); err != nil {
			return fmt.Errorf("close MIDI port: %w", err)
		}
		midi.CloseDriver()
	}
	return nil
}

func (me *MIDIEngine) Type() string { return "midi" }

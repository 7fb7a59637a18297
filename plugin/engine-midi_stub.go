//go:build nomidi

package plugin

import (
	"fmt"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

type MIDIEngine struct{}

func NewMIDIEngine(port int, root uint8) (*MIDIEngine, error) {
	return nil, fmt.Errorf("MIDI support not compiled in this build")
}

func (me *MIDIEngine) Supported() bool { return false }

func (me *MIDIEngine) Compile(p Ht.HapticPattern) (Handle, error) {
	return nil, ErrUnsupported
}

func (me *MIDIEngine) Start(h Handle, at time.Duration) error { return ErrUnsupported }

func (me *MIDIEngine) Wait()        {}
func (me *MIDIEngine) Flush() error { return nil }
func (me *MIDIEngine) Close() error { return nil }
func (me *MIDIEngine) Type() string { return "midi-disabled" }

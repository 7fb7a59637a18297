package haptics

import (
	"errors"
	"fmt"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

const (
	PatternRinging      = "ringing"
	PatternMaxIntensity = "max-intensity"
)

// Ringing defaults: three rings with a half second pause
const (
	DefaultRingCount    uint = 3
	DefaultRingDuration      = 1200 * time.Millisecond
	DefaultRingGap           = 500 * time.Millisecond
)

// Shape of one ring: buzz, four pulses, buzz
const (
	ringBuzzLength     = 200 * time.Millisecond
	ringPulseLead      = 250 * time.Millisecond
	ringPulseSpacing   = 150 * time.Millisecond
	ringPulseCount     = 4
	ringSecondBuzzLead = 850 * time.Millisecond
)

// Max intensity: two waves of buzz plus rapid taps, then a final burst
const (
	maxWaveLength   = 500 * time.Millisecond
	maxSecondWave   = 600 * time.Millisecond
	maxTapSpacing   = 50 * time.Millisecond
	maxTapCount     = 10
	maxFinalStart   = 1200 * time.Millisecond
	maxFinalLength  = 800 * time.Millisecond
	maxSettleMargin = 100 * time.Millisecond
)

var ErrUnknownPattern = errors.New("unknown pattern")

// BuildRingingPattern lays out rings back to back, each ring starting
// ringDuration+ringGap after the previous one. The session stays Playing
// for every full ring slot, including the trailing gap.
// Spacing that would place an event before zero is an InvalidEventError.
func BuildRingingPattern(rings uint, ringDuration, ringGap time.Duration) (Ht.HapticPattern, error) {
	slot := ringDuration + ringGap
	p := Ht.HapticPattern{
		Name:     PatternRinging,
		Events:   make([]Ht.HapticEvent, 0, int(rings)*(ringPulseCount+2)),
		Duration: time.Duration(rings) * slot,
	}

	add := func(ev Ht.HapticEvent, err error) error {
		if err != nil {
			return err
		}
		p.Events = append(p.Events, ev)
		return nil
	}

	for r := uint(0); r < rings; r++ {
		ringStart := time.Duration(r) * slot

		// first buzz, long and intense
		if err := add(NewContinuous(1.0, 0.8, ringStart, ringBuzzLength)); err != nil {
			return Ht.HapticPattern{}, err
		}

		// quick pulses to simulate the vibration motor
		for pulse := 0; pulse < ringPulseCount; pulse++ {
			at := ringStart + ringPulseLead + time.Duration(pulse)*ringPulseSpacing
			if err := add(NewTransient(0.9, 1.0, at)); err != nil {
				return Ht.HapticPattern{}, err
			}
		}

		// second buzz
		if err := add(NewContinuous(1.0, 0.8, ringStart+ringSecondBuzzLead, ringBuzzLength)); err != nil {
			return Ht.HapticPattern{}, err
		}
	}

	if p.Duration < 0 {
		return Ht.HapticPattern{}, &InvalidEventError{Reason: fmt.Sprintf("negative ring spacing %v", slot)}
	}
	return p, nil
}

// BuildMaxIntensityPattern is fixed, every event at full intensity
// and sharpness. It is held for 2.1s: the last event ends at 2.0s
// and the extra 100ms lets the actuator settle.
func BuildMaxIntensityPattern() Ht.HapticPattern {
	p := Ht.HapticPattern{
		Name:   PatternMaxIntensity,
		Events: make([]Ht.HapticEvent, 0, 3+2*maxTapCount),
	}

	wave := func(start time.Duration) {
		p.Events = append(p.Events, mustEvent(NewContinuous(1.0, 1.0, start, maxWaveLength)))
		for i := 0; i < maxTapCount; i++ {
			p.Events = append(p.Events, mustEvent(NewTransient(1.0, 1.0, start+time.Duration(i)*maxTapSpacing)))
		}
	}

	wave(0)
	wave(maxSecondWave)
	p.Events = append(p.Events, mustEvent(NewContinuous(1.0, 1.0, maxFinalStart, maxFinalLength)))

	p.Duration = EventSpan(p) + maxSettleMargin
	return p
}

// PatternInfo is the catalog entry shown to the trigger surface
type PatternInfo struct {
	Name  string
	Label string
	Color string
}

var catalog = []PatternInfo{
	{Name: PatternRinging, Label: "Phone Ringing", Color: "purple"},
	{Name: PatternMaxIntensity, Label: "Max Intensity", Color: "red"},
}

// Patterns lists the catalog in display order
func Patterns() []PatternInfo {
	out := make([]PatternInfo, len(catalog))
	copy(out, catalog)
	return out
}

// PatternNames lists catalog names in display order
func PatternNames() []string {
	names := make([]string, 0, len(catalog))
	for _, c := range catalog {
		names = append(names, c.Name)
	}
	return names
}

// LookupPattern returns the catalog entry for name
func LookupPattern(name string) (PatternInfo, error) {
	for _, c := range catalog {
		if c.Name == name {
			return c, nil
		}
	}
	return PatternInfo{}, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
}

// BuildPattern builds a catalog pattern with its default parameters
func BuildPattern(name string) (Ht.HapticPattern, error) {
	switch name {
	case PatternRinging:
		return BuildRingingPattern(DefaultRingCount, DefaultRingDuration, DefaultRingGap)
	case PatternMaxIntensity:
		return BuildMaxIntensityPattern(), nil
	default:
		return Ht.HapticPattern{}, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
	}
}

package haptics

import (
	"fmt"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

// Effect is a named one-shot feedback, the kind a UI fires on a tap.
// On engines without system feedback generators each one is rendered
// as a short pattern.
type Effect struct {
	Name    string
	Label   string
	Family  string // impact, notification or selection
	Color   string
	Filled  bool // heavy impact draws a filled icon
	Pattern Ht.HapticPattern
}

type tap struct {
	at        time.Duration
	intensity float64
	sharpness float64
}

func taps(name string, ts ...tap) Ht.HapticPattern {
	p := Ht.HapticPattern{Name: name}
	for _, t := range ts {
		p.Events = append(p.Events, mustEvent(NewTransient(t.intensity, t.sharpness, t.at)))
	}
	p.Duration = EventSpan(p) + effectTail
	return p
}

// effectTail keeps the actuator quiet after the last tap
const effectTail = 100 * time.Millisecond

var effects = []Effect{
	{Name: "impact-light", Label: "Light Impact", Family: "impact", Color: "blue",
		Pattern: taps("impact-light", tap{0, 0.4, 0.5})},
	{Name: "impact-medium", Label: "Medium Impact", Family: "impact", Color: "blue",
		Pattern: taps("impact-medium", tap{0, 0.7, 0.5})},
	{Name: "impact-heavy", Label: "Heavy Impact", Family: "impact", Color: "blue", Filled: true,
		Pattern: taps("impact-heavy", tap{0, 1.0, 0.5})},
	{Name: "impact-soft", Label: "Soft Impact", Family: "impact", Color: "blue",
		Pattern: taps("impact-soft", tap{0, 0.6, 0.1})},
	{Name: "impact-rigid", Label: "Rigid Impact", Family: "impact", Color: "blue",
		Pattern: taps("impact-rigid", tap{0, 0.8, 1.0})},
	{Name: "notification-success", Label: "Success Notification", Family: "notification", Color: "green",
		Pattern: taps("notification-success", tap{0, 0.6, 0.4}, tap{100 * time.Millisecond, 1.0, 0.6})},
	{Name: "notification-warning", Label: "Warning Notification", Family: "notification", Color: "yellow",
		Pattern: taps("notification-warning", tap{0, 1.0, 0.6}, tap{150 * time.Millisecond, 0.6, 0.4})},
	{Name: "notification-error", Label: "Error Notification", Family: "notification", Color: "red",
		Pattern: taps("notification-error",
			tap{0, 0.8, 0.8}, tap{100 * time.Millisecond, 0.8, 0.8}, tap{200 * time.Millisecond, 1.0, 0.9})},
	{Name: "selection", Label: "Selection changed", Family: "selection", Color: "blue",
		Pattern: taps("selection", tap{0, 0.35, 0.7})},
}

// Effects lists every feedback effect in display order
func Effects() []Effect {
	out := make([]Effect, len(effects))
	copy(out, effects)
	return out
}

// LookupEffect returns the named effect
func LookupEffect(name string) (Effect, error) {
	for _, fx := range effects {
		if fx.Name == name {
			return fx, nil
		}
	}
	return Effect{}, fmt.Errorf("%w: %s", ErrUnknownPattern, name)
}

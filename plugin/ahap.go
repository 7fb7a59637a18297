package plugin

/*
	AHAP

	Apple Haptic and Audio Pattern files are the JSON form
	of a CoreHaptics pattern. Export lets a pattern built here
	be played on an iPhone, import takes the haptic events only.
*/

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	Ht "github.com/zain-sajid/haptics/types"
)

const (
	ahapTransient  = "HapticTransient"
	ahapContinuous = "HapticContinuous"
	ahapIntensity  = "HapticIntensity"
	ahapSharpness  = "HapticSharpness"
)

type AHAPFile struct {
	Version  float64        `json:"Version"`
	Metadata AHAPMetadata   `json:"Metadata"`
	Pattern  []AHAPPatternE `json:"Pattern"`
}

type AHAPMetadata struct {
	Project     string `json:"Project,omitempty"`
	Description string `json:"Description,omitempty"`
}

// AHAPPatternE is one element of the Pattern array,
// only Event elements are produced or understood here.
type AHAPPatternE struct {
	Event *AHAPEvent `json:"Event,omitempty"`
}

type AHAPEvent struct {
	Time            float64         `json:"Time"`
	EventType       string          `json:"EventType"`
	EventDuration   float64         `json:"EventDuration,omitempty"`
	EventParameters []AHAPParameter `json:"EventParameters"`
}

type AHAPParameter struct {
	ParameterID    string  `json:"ParameterID"`
	ParameterValue float64 `json:"ParameterValue"`
}

// EncodeAHAP writes the pattern as an indented AHAP document
func EncodeAHAP(p Ht.HapticPattern) ([]byte, error) {
	doc := AHAPFile{
		Version: 1.0,
		Metadata: AHAPMetadata{
			Project:     "haptics",
			Description: p.Name,
		},
		Pattern: make([]AHAPPatternE, 0, len(p.Events)),
	}

	for i, ev := range p.Events {
		if err := checkEvent(ev); err != nil {
			return nil, fmt.Errorf("event %d of %q: %w", i, p.Name, err)
		}
		ae := &AHAPEvent{
			Time:      ev.Offset.Seconds(),
			EventType: ahapTransient,
			EventParameters: []AHAPParameter{
				{ParameterID: ahapIntensity, ParameterValue: ev.Intensity},
				{ParameterID: ahapSharpness, ParameterValue: ev.Sharpness},
			},
		}
		if ev.Kind == Ht.Continuous {
			ae.EventType = ahapContinuous
			ae.EventDuration = ev.Duration.Seconds()
		}
		doc.Pattern = append(doc.Pattern, AHAPPatternE{Event: ae})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// DecodeAHAP reads the haptic events of an AHAP document.
// The pattern Duration is the end of the last event,
// AHAP has no notion of a settle margin.
func DecodeAHAP(name string, data []byte) (Ht.HapticPattern, error) {
	var doc AHAPFile
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("Error unmarshalling AHAP", slog.String("pattern", name), slog.Any("error", err))
		return Ht.HapticPattern{}, fmt.Errorf("error unmarshalling AHAP: %w", err)
	}

	p := Ht.HapticPattern{Name: name}
	for i, elem := range doc.Pattern {
		if elem.Event == nil {
			continue
		}
		ev, err := decodeEvent(elem.Event)
		if err != nil {
			return Ht.HapticPattern{}, fmt.Errorf("AHAP element %d: %w", i, err)
		}
		p.Events = append(p.Events, ev)
		if end := ev.Offset + ev.Duration; end > p.Duration {
			p.Duration = end
		}
	}
	return p, nil
}

func decodeEvent(ae *AHAPEvent) (Ht.HapticEvent, error) {
	ev := Ht.HapticEvent{Offset: seconds(ae.Time)}

	switch ae.EventType {
	case ahapTransient:
		ev.Kind = Ht.Transient
	case ahapContinuous:
		ev.Kind = Ht.Continuous
		ev.Duration = seconds(ae.EventDuration)
	default:
		return ev, fmt.Errorf("unsupported event type %q", ae.EventType)
	}

	var hasI, hasS bool
	for _, prm := range ae.EventParameters {
		switch prm.ParameterID {
		case ahapIntensity:
			ev.Intensity, hasI = prm.ParameterValue, true
		case ahapSharpness:
			ev.Sharpness, hasS = prm.ParameterValue, true
		}
	}
	if !hasI || !hasS {
		return ev, fmt.Errorf("event at %v needs both %s and %s", ev.Offset, ahapIntensity, ahapSharpness)
	}

	if err := checkEvent(ev); err != nil {
		return ev, err
	}
	return ev, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

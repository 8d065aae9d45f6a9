// Package config loads per-installation defaults for the capacitive
// keyboard controller: values that are worth pinning for a given build but
// are not part of the non-volatile calibration record (that lives in
// package calibration instead). The JSON schema follows the teacher's
// preset.File/ApplyFile idiom: every field is optional, a nil pointer means
// "leave the factory default alone."
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corvidaudio/capsense-core/keyboard"
	"github.com/corvidaudio/capsense-core/touch"
)

// File is the JSON schema for an installation defaults file.
type File struct {
	SensitivityPresetIndex *int     `json:"sensitivity_preset_index"`
	ArpBPM                 *float32 `json:"arp_bpm"`
	ArpGateLength          *float32 `json:"arp_gate_length"`
	ArpPattern             *string  `json:"arp_pattern"`
	GlideMs                *float32 `json:"glide_ms"`
	AuxAlpha               *float32 `json:"aux_alpha"`
}

// Defaults is the applied, fully-resolved form of File: SensitivityPresetIndex
// defaults to 0 ("Standard") when no file is loaded at all.
type Defaults struct {
	SensitivityPresetIndex int
}

// patternNames maps the JSON arp_pattern string onto keyboard.ArpPattern,
// in the same order keyboard.ArpPattern's iota block declares them.
var patternNames = map[string]keyboard.ArpPattern{
	"up":          keyboard.PatternUp,
	"down":        keyboard.PatternDown,
	"up_down":     keyboard.PatternUpDown,
	"random":      keyboard.PatternRandom,
	"chord":       keyboard.PatternChord,
	"up_octave":   keyboard.PatternUpOctave,
	"down_octave": keyboard.PatternDownOctave,
	"converge":    keyboard.PatternConverge,
	"diverge":     keyboard.PatternDiverge,
	"pedal_up":    keyboard.PatternPedalUp,
	"cascade":     keyboard.PatternCascade,
	"probability": keyboard.PatternProbability,
}

// LoadJSON reads an installation defaults file and applies it onto a fresh
// ModeSelector, returning the resolved Defaults for the parts of the system
// that live outside keyboard (the calibration sensitivity preset index).
func LoadJSON(path string, sel *keyboard.ModeSelector) (Defaults, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return Defaults{}, err
	}

	return ApplyFile(sel, &f)
}

// ApplyFile validates and applies a parsed defaults file onto sel, mirroring
// preset.ApplyFile's validate-then-assign shape: each field is checked and
// then applied in turn (not transactional across fields, same as the
// teacher), so an invalid value aborts with the earlier fields already
// applied and the factory defaults left in place for any field not yet
// applied.
func ApplyFile(sel *keyboard.ModeSelector, f *File) (Defaults, error) {
	d := Defaults{SensitivityPresetIndex: 0}
	if sel == nil {
		return d, fmt.Errorf("config: nil mode selector")
	}
	if f == nil {
		return d, nil
	}

	if f.SensitivityPresetIndex != nil {
		if *f.SensitivityPresetIndex < 0 || *f.SensitivityPresetIndex >= len(touch.SensitivityPresets) {
			return d, fmt.Errorf("config: sensitivity_preset_index out of range 0..%d", len(touch.SensitivityPresets)-1)
		}
		d.SensitivityPresetIndex = *f.SensitivityPresetIndex
	}

	e1 := sel.Engine1()
	e2 := sel.Engine2()

	if f.GlideMs != nil {
		if *f.GlideMs < 0 {
			return d, fmt.Errorf("config: glide_ms must be >= 0")
		}
		e1.SetGlideMs(*f.GlideMs)
	}
	if f.AuxAlpha != nil {
		if *f.AuxAlpha <= 0 {
			return d, fmt.Errorf("config: aux_alpha must be > 0")
		}
		e1.SetAuxAlpha(*f.AuxAlpha)
	}
	if f.ArpBPM != nil {
		if *f.ArpBPM <= 0 {
			return d, fmt.Errorf("config: arp_bpm must be > 0")
		}
		e2.SetBPM(*f.ArpBPM)
	}
	if f.ArpGateLength != nil {
		if *f.ArpGateLength <= 0 || *f.ArpGateLength >= 1 {
			return d, fmt.Errorf("config: arp_gate_length must be in (0,1)")
		}
		e2.SetGateLength(*f.ArpGateLength)
	}
	if f.ArpPattern != nil {
		pattern, ok := patternNames[*f.ArpPattern]
		if !ok {
			return d, fmt.Errorf("config: unknown arp_pattern %q", *f.ArpPattern)
		}
		e2.SetPattern(pattern)
	}

	return d, nil
}

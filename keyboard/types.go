// Package keyboard implements the signal and control core of the
// pressure-sensitive capacitive keyboard: the per-key pressure pipeline,
// the two play engines, the mode selector, the input dispatcher, and the
// interactive calibration state machine. It has no knowledge of any
// physical bus; all hardware access is injected through the small
// interfaces declared in this file.
package keyboard

import "github.com/corvidaudio/capsense-core/internal/clock"

// CVRes is the full-scale resolution of a linearized pressure/CV value.
const CVRes = 4095

// Note is a held key: its MIDI-style pitch number and its current
// linearized pressure in [0, CVRes].
type Note struct {
	Pitch uint8
	Value uint16
}

// NoteSink is the shared capability both play engines accept note edges
// and aftertouch through. The pressure pipeline calls it at most once per
// key per tick (idle keys get no call), in key order 0..23.
type NoteSink interface {
	NoteOn(key int, value uint16)
	NoteOff(key int)
	AftertouchUpdate(key int, value uint16)
}

// AnalogOutput is the contract the output commit stage writes through.
// Implementations live in hwio (real hardware) or a test double.
type AnalogOutput interface {
	SetVoltage(channel int, volts float32) error
	SetGate(on bool) error
	PulseTrigger() error
}

// UIEffect is the closed set of one-shot/continuous display requests an
// engine or the calibration FSM can make of the (out-of-scope) LED
// controller. Carried verbatim from the original firmware's LedManager.
type UIEffect int

const (
	EffectNone UIEffect = iota
	EffectValidate
	EffectChase
	EffectBargraph
	EffectCrossfade
	EffectInwardWipe
	EffectInvertedBargraph
	EffectPatternDisplay
	EffectCountdown
)

// UIEffectSink is the contract the LED controller consumes. It is left
// unimplemented in the core beyond a no-op; the real renderer is out of
// scope.
type UIEffectSink interface {
	RequestEffect(UIEffect)
	DisplayOctave(octave int)
	DisplayBargraph(percent int)
}

// NopEffectSink discards every request. Used by cmd/capsense-sim and by
// tests that do not care about UI feedback.
type NopEffectSink struct{}

func (NopEffectSink) RequestEffect(UIEffect) {}
func (NopEffectSink) DisplayOctave(int)      {}
func (NopEffectSink) DisplayBargraph(int)    {}

// OutputSnapshot is produced once per tick by the active engine and is
// the sole authority the output commit stage reads from.
type OutputSnapshot struct {
	PitchV    float32
	AuxV      float32
	Gate      bool
	Retrigger bool
	Effect    UIEffect
}

// RawInputs is one tick's worth of raw (not yet debounced or classified)
// physical control-surface state, sampled by hwio and handed to the
// Dispatcher, which does the debouncing.
type RawInputs struct {
	HoldPressed     bool
	ModePressed     bool
	OctPlusPressed  bool
	OctMinusPressed bool

	RotaryA bool
	RotaryB bool

	SensPotCounts int // 0..1023
}

// InputEvents is the one-shot, one-tick-only set of classified control
// events the Dispatcher produces. Every value field is only meaningful
// when its paired flag is set.
type InputEvents struct {
	HoldShort bool
	HoldLong  bool

	ModeShort bool
	ModeLong  bool

	OctPlusShort  bool
	OctMinusShort bool
	OctPlusLong   bool // level, true while held past LP_MS
	OctMinusLong  bool // level, true while held past LP_MS

	SensPotMoved bool
	SensPotValue int // 0..1023, valid iff SensPotMoved

	RotaryTurned   bool
	RotaryDelta    int     // signed step count, valid iff RotaryTurned
	RotaryVelocity float32 // valid iff RotaryTurned
}

// Clock is the tick's monotonic time source, re-exported so callers in
// this package don't need to import internal/clock directly for the type
// name.
type Clock = clock.Time

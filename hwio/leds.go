package hwio

import (
	"periph.io/x/conn/v3/gpio"

	"github.com/corvidaudio/capsense-core/keyboard"
)

// LEDs is a minimal GPIO-driven keyboard.UIEffectSink: a thermometer-style
// bargraph over a fixed pin bank plus a single effect-strobe pin. The
// original firmware's full animation engine (chase/crossfade/inward-wipe
// timings) is out of scope here (spec.md §6's "LED display controller...
// reduced to render octave indicator, bar-graph, and one-shot effects");
// this binds only the reduced contract to real pins.
type LEDs struct {
	bargraph []gpio.PinOut
	octave   []gpio.PinOut
	strobe   gpio.PinOut
}

// NewLEDs constructs an LEDs sink. bargraph and octave are ordered
// low-to-high pin banks; strobe is pulsed once (high, left high until the
// next RequestEffect) for any non-EffectNone request.
func NewLEDs(bargraph, octave []gpio.PinOut, strobe gpio.PinOut) *LEDs {
	return &LEDs{bargraph: bargraph, octave: octave, strobe: strobe}
}

// RequestEffect implements keyboard.UIEffectSink by strobing the single
// effect pin for any non-EffectNone request; the original animation
// catalogue (spec.md's closed UIEffect enum) has no further hardware
// expression at this reduced scope.
func (l *LEDs) RequestEffect(effect keyboard.UIEffect) {
	if l.strobe == nil {
		return
	}
	if effect == keyboard.EffectNone {
		l.strobe.Out(gpio.Low)
		return
	}
	l.strobe.Out(gpio.High)
}

// DisplayOctave lights exactly the pin corresponding to the current octave
// offset, offset from the center of the bank (octaveOffsetMin..Max).
func (l *LEDs) DisplayOctave(octave int) {
	center := len(l.octave) / 2
	lit := center + octave
	for i, p := range l.octave {
		level := gpio.Low
		if i == lit {
			level = gpio.High
		}
		p.Out(level)
	}
}

// DisplayBargraph lights a prefix of the bargraph bank proportional to
// percent (0..100).
func (l *LEDs) DisplayBargraph(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	lit := percent * len(l.bargraph) / 100
	for i, p := range l.bargraph {
		level := gpio.Low
		if i < lit {
			level = gpio.High
		}
		p.Out(level)
	}
}

package hwio

import (
	"github.com/warthog618/go-gpiocdev"

	"github.com/corvidaudio/capsense-core/keyboard"
)

// ControlSurface reads the four momentary buttons and the quadrature
// rotary's two phase lines from a Linux GPIO character device, matching the
// OE3ANC-linht-web manifest's pairing of go-gpiocdev with periph.io/x/
// host/v3 for a single-board control surface. Every line is requested
// as an input with an internal pull-up, active-low, same polarity as the
// original firmware's INPUT_PULLUP buttons.
type ControlSurface struct {
	hold, mode, octPlus, octMinus *gpiocdev.Line
	rotaryA, rotaryB              *gpiocdev.Line
	pot                           *SensPot
}

// ControlPins names the GPIO offsets on chip each control line sits on.
type ControlPins struct {
	Chip                         string
	Hold, Mode, OctPlus, OctMinus int
	RotaryA, RotaryB             int
}

// NewControlSurface requests every configured line from the given chip and
// binds an optional sensitivity pot reader (nil if the installation has no
// pot wired, in which case RawInputs.SensPotCounts stays 0 every tick).
func NewControlSurface(pins ControlPins, pot *SensPot) (*ControlSurface, error) {
	open := func(offset int) (*gpiocdev.Line, error) {
		return gpiocdev.RequestLine(pins.Chip, offset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	}

	hold, err := open(pins.Hold)
	if err != nil {
		return nil, wrapf("request HOLD line: %v", err)
	}
	mode, err := open(pins.Mode)
	if err != nil {
		return nil, wrapf("request MODE line: %v", err)
	}
	octPlus, err := open(pins.OctPlus)
	if err != nil {
		return nil, wrapf("request OCT+ line: %v", err)
	}
	octMinus, err := open(pins.OctMinus)
	if err != nil {
		return nil, wrapf("request OCT- line: %v", err)
	}
	rotaryA, err := open(pins.RotaryA)
	if err != nil {
		return nil, wrapf("request rotary A line: %v", err)
	}
	rotaryB, err := open(pins.RotaryB)
	if err != nil {
		return nil, wrapf("request rotary B line: %v", err)
	}

	return &ControlSurface{
		hold: hold, mode: mode, octPlus: octPlus, octMinus: octMinus,
		rotaryA: rotaryA, rotaryB: rotaryB,
		pot: pot,
	}, nil
}

// Read samples every line's current level into a RawInputs snapshot for the
// Dispatcher (spec.md §5's fixed per-tick order, step 1). Active-low lines
// are inverted here so RawInputs always means "true == pressed".
func (cs *ControlSurface) Read() (keyboard.RawInputs, error) {
	var raw keyboard.RawInputs

	hold, err := cs.hold.Value()
	if err != nil {
		return raw, wrapf("read HOLD: %v", err)
	}
	mode, err := cs.mode.Value()
	if err != nil {
		return raw, wrapf("read MODE: %v", err)
	}
	octPlus, err := cs.octPlus.Value()
	if err != nil {
		return raw, wrapf("read OCT+: %v", err)
	}
	octMinus, err := cs.octMinus.Value()
	if err != nil {
		return raw, wrapf("read OCT-: %v", err)
	}
	rotA, err := cs.rotaryA.Value()
	if err != nil {
		return raw, wrapf("read rotary A: %v", err)
	}
	rotB, err := cs.rotaryB.Value()
	if err != nil {
		return raw, wrapf("read rotary B: %v", err)
	}

	raw.HoldPressed = hold == 0
	raw.ModePressed = mode == 0
	raw.OctPlusPressed = octPlus == 0
	raw.OctMinusPressed = octMinus == 0
	raw.RotaryA = rotA != 0
	raw.RotaryB = rotB != 0

	if cs.pot != nil {
		counts, err := cs.pot.Read()
		if err != nil {
			return raw, wrapf("read sensitivity pot: %v", err)
		}
		raw.SensPotCounts = counts
	}

	return raw, nil
}

// Close releases every requested GPIO line.
func (cs *ControlSurface) Close() error {
	for _, l := range []*gpiocdev.Line{cs.hold, cs.mode, cs.octPlus, cs.octMinus, cs.rotaryA, cs.rotaryB} {
		if l != nil {
			l.Close()
		}
	}
	return nil
}

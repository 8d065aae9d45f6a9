package keyboard

import "github.com/corvidaudio/capsense-core/internal/clock"

// buttonState tracks one debounced button line plus its short/long press
// classification (spec.md §4.E). comboHappened is only meaningful for the
// Oct+/Oct- lines, which double as shift keys for rotary combos.
type buttonState struct {
	stableDown bool
	lastRaw    bool
	lastChange clock.Time
	hasChange  bool

	pressStart clock.Time
	longArmed  bool

	comboHappened bool
}

// debounce folds one raw sample into the button's stable level, returning
// rising/falling edges on the stable signal only.
func (b *buttonState) debounce(now clock.Time, raw bool) (rose, fell bool) {
	if raw != b.lastRaw {
		b.lastRaw = raw
		b.lastChange = now
		b.hasChange = true
	}
	if b.hasChange && now.Since(b.lastChange) >= debounceMs && b.stableDown != raw {
		b.stableDown = raw
		if raw {
			return true, false
		}
		return false, true
	}
	return false, false
}

// Dispatcher turns raw button levels and quadrature/pot samples into the
// classified InputEvents the engines and calibration FSM consume. Grounded
// on original_source/src/InputManager.cpp (button debounce/combo logic) and
// original_source/src/SimpleEncoder.h (quadrature decode).
type Dispatcher struct {
	hold     buttonState
	mode     buttonState
	octPlus  buttonState
	octMinus buttonState

	rotary rotaryDecoder

	potFiltered  float32
	hasPotFilter bool
	lastEmitted  int
}

// NewDispatcher returns a Dispatcher with all button/rotary/pot state at
// rest.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Tick folds one tick's raw sample into classified events. It must be
// called exactly once per tick, in sync with the fixed tick order (spec.md
// §5), before the touch front-end poll.
func (d *Dispatcher) Tick(now clock.Time, raw RawInputs) InputEvents {
	var ev InputEvents

	ev.HoldShort, ev.HoldLong = d.stepSimpleButton(now, &d.hold, raw.HoldPressed, longPressHoldMs)
	ev.ModeShort, ev.ModeLong = d.stepSimpleButton(now, &d.mode, raw.ModePressed, longPressHoldMs)

	octPlusShort, octPlusLong := d.stepOctButton(now, &d.octPlus, raw.OctPlusPressed)
	octMinusShort, octMinusLong := d.stepOctButton(now, &d.octMinus, raw.OctMinusPressed)
	ev.OctPlusShort, ev.OctPlusLong = octPlusShort, octPlusLong
	ev.OctMinusShort, ev.OctMinusLong = octMinusShort, octMinusLong

	delta, velocity, turned := d.rotary.tick(now, raw.RotaryA, raw.RotaryB)
	if turned {
		ev.RotaryTurned = true
		ev.RotaryDelta = delta
		ev.RotaryVelocity = velocity
		if d.octPlus.stableDown {
			d.octPlus.comboHappened = true
		}
		if d.octMinus.stableDown {
			d.octMinus.comboHappened = true
		}
	}

	d.stepSensPot(&ev, raw.SensPotCounts)

	return ev
}

// stepSimpleButton implements the plain short/long classification used by
// Hold and Mode: short fires on release unless the long threshold was
// already crossed during the press, and long fires once, the instant the
// hold duration crosses the threshold.
func (d *Dispatcher) stepSimpleButton(now clock.Time, b *buttonState, raw bool, lpMs clock.Time) (short, long bool) {
	rose, fell := b.debounce(now, raw)
	if rose {
		b.pressStart = now
		b.longArmed = false
	}
	if b.stableDown && !b.longArmed && now.Since(b.pressStart) >= lpMs {
		b.longArmed = true
		long = true
	}
	if fell {
		short = !b.longArmed
	}
	return short, long
}

// stepOctButton layers the shift-key combo suppression on top of the plain
// classification: a short-press on release is suppressed if a rotary turn
// occurred at any point during the hold, even if the hold itself was brief,
// because that turn already consumed the press as an aux-alpha/deadzone
// combo rather than an octave nudge.
func (d *Dispatcher) stepOctButton(now clock.Time, b *buttonState, raw bool) (short, long bool) {
	rose, fell := b.debounce(now, raw)
	if rose {
		b.pressStart = now
		b.longArmed = false
		b.comboHappened = false
	}
	if b.stableDown && !b.longArmed && now.Since(b.pressStart) >= longPressOctMs {
		b.longArmed = true
	}
	long = b.stableDown && now.Since(b.pressStart) >= longPressOctMs
	if fell {
		short = !b.longArmed && !b.comboHappened
		b.comboHappened = false
	}
	return short, long
}

// stepSensPot applies one-pole smoothing to the sensitivity pot and emits
// a move event only once the smoothed value has drifted outside a small
// deadzone from the last value reported.
func (d *Dispatcher) stepSensPot(ev *InputEvents, counts int) {
	if !d.hasPotFilter {
		d.potFiltered = float32(counts)
		d.hasPotFilter = true
		d.lastEmitted = int(counts)
		return
	}
	d.potFiltered = (1-sensPotAlpha)*d.potFiltered + sensPotAlpha*float32(counts)
	current := int(d.potFiltered)
	if abs(current-d.lastEmitted) > sensPotDeadzone {
		ev.SensPotMoved = true
		ev.SensPotValue = current
		d.lastEmitted = current
	}
}

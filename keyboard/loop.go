package keyboard

import (
	"github.com/corvidaudio/capsense-core/calibration"
	"github.com/corvidaudio/capsense-core/internal/clock"
	"github.com/corvidaudio/capsense-core/touch"
)

// Loop owns every stage of the fixed per-tick order (spec.md §5): input
// dispatch, touch poll, pressure pipeline, active engine tick, output
// commit, and LED render. It is the one place those stages are wired
// together in the documented order; cmd/capsense-sim and cmd/capsense-hw
// both just supply the RawInputs source, AnalogOutput sink, and clock.
type Loop struct {
	Debug bool

	front *touch.FrontEnd
	pipe  *Pipeline
	disp  *Dispatcher
	sel   *ModeSelector

	out  AnalogOutput
	leds UIEffectSink

	suppressed bool // true once the front-end reports a bus failure
}

// NewLoop constructs a Loop from a previously-loaded calibration record
// (or calibration.DefaultRecord() if none was found) and the injected
// hardware contracts.
func NewLoop(front *touch.FrontEnd, rec calibration.Record, out AnalogOutput, leds UIEffectSink) *Loop {
	return &Loop{
		front: front,
		pipe:  NewPipeline(rec.MaxDelta),
		disp:  NewDispatcher(),
		sel:   NewModeSelector(),
		out:   out,
		leds:  leds,
	}
}

// ModeSelector exposes the active engines for config-time default
// application and tests.
func (l *Loop) ModeSelector() *ModeSelector { return l.sel }

// Pipeline exposes the pressure pipeline for config-time default
// application (response shape) and tests.
func (l *Loop) Pipeline() *Pipeline { return l.pipe }

// Tick runs one full pass of the fixed per-tick order:
//  1. Input Dispatcher update
//  2. Touch Front-End poll
//  3. Pressure Pipeline update (drives NoteOn/NoteOff/AftertouchUpdate into
//     the active engine)
//  4. Active Engine tick
//  5. Output commit (pitch, aux, gate, trigger pulse on retrigger)
//  6. LED renderer tick
func (l *Loop) Tick(now clock.Time, raw RawInputs) error {
	events := l.disp.Tick(now, raw)

	if err := l.front.Poll(); err != nil {
		if !l.suppressed {
			l.pipe.ForceIdle(l.sel)
			l.suppressed = true
		}
		return err
	}
	l.suppressed = false

	l.sel.SetNow(now)
	l.pipe.Tick(l.front.Filtered, l.front.Baseline, l.sel)

	l.sel.ProcessInputs(events, l.pipe)
	l.sel.Tick(now)

	snap := l.sel.SnapshotOutputs()
	if err := l.commitOutputs(snap); err != nil {
		return err
	}

	l.leds.RequestEffect(snap.Effect)
	return nil
}

// commitOutputs writes one tick's OutputSnapshot to the AnalogOutput
// contract (spec.md §5 step 5).
func (l *Loop) commitOutputs(snap OutputSnapshot) error {
	if err := l.out.SetVoltage(0, snap.PitchV); err != nil {
		return err
	}
	if err := l.out.SetVoltage(1, snap.AuxV); err != nil {
		return err
	}
	if err := l.out.SetGate(snap.Gate); err != nil {
		return err
	}
	if snap.Retrigger {
		if err := l.out.PulseTrigger(); err != nil {
			return err
		}
	}
	return nil
}

// Calibration is intentionally not a Loop method: it is driven entirely by
// Calibrator, a separate routine the caller runs instead of Loop.Tick while
// the keyboard is in calibration mode (spec.md §4.D).

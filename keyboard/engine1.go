package keyboard

import (
	"github.com/cwbudde/algo-approx"

	"github.com/corvidaudio/capsense-core/internal/clock"
)

// Engine1 is the monophonic pressure/glide engine (spec.md §4.F): a
// note-stack-based voice with pitch glide and pressure-derived aux
// voltage.
type Engine1 struct {
	stack noteStack

	octaveOffset int
	latch        bool

	targetPitchV     float32
	pitchV           float32
	targetAuxV       float32
	auxV             float32
	lastActivePitchV float32

	auxAlpha float32
	glideMs  float32

	gate      bool
	retrigger bool

	lastTick    clock.Time
	hasLastTick bool
}

// NewEngine1 constructs an Engine1 with factory defaults: no glide, mid
// aux smoothing, centered octave.
func NewEngine1() *Engine1 {
	return &Engine1{
		auxAlpha:         0.2,
		glideMs:          0,
		pitchV:           centerVoltage,
		targetPitchV:     centerVoltage,
		lastActivePitchV: centerVoltage,
	}
}

// NoteOn implements NoteSink: key is the pipeline's key index, translated
// to a pitch number via keyPitchOffset.
func (e *Engine1) NoteOn(key int, value uint16) {
	pitch := uint8(key + keyPitchOffset)

	e.stack.Push(Note{Pitch: pitch, Value: value})
	top, _ := e.stack.Top()

	e.targetPitchV = midiToVoltage(top.Pitch, e.octaveOffset)
	e.targetAuxV = auxVoltsFor(top.Value)
	e.gate = true
	e.retrigger = true // also covers the legato case: a new top while gate was already open
}

// NoteOff implements NoteSink.
func (e *Engine1) NoteOff(key int) {
	pitch := uint8(key + keyPitchOffset)
	if e.latch {
		return
	}
	e.stack.Remove(pitch)
	if e.stack.Len() == 0 {
		e.gate = false
		e.targetAuxV = 0
		e.targetPitchV = e.lastActivePitchV
	}
}

// AftertouchUpdate implements NoteSink.
func (e *Engine1) AftertouchUpdate(key int, value uint16) {
	pitch := uint8(key + keyPitchOffset)
	if !e.stack.UpdateValue(pitch, value) {
		return
	}
	if top, ok := e.stack.Top(); ok && top.Pitch == pitch {
		e.targetAuxV = auxVoltsFor(value)
	}
}

// Tick advances pitch/aux voltage smoothing by the elapsed time since the
// previous tick (spec.md §4.F).
func (e *Engine1) Tick(now clock.Time) {
	var dtMs float32
	if e.hasLastTick {
		dtMs = float32(now.Since(e.lastTick))
	}
	e.lastTick = now
	e.hasLastTick = true

	if e.glideMs > 5 {
		alpha := 1 - approx.FastExp(-dtMs/e.glideMs)
		e.pitchV = (1-alpha)*e.pitchV + alpha*e.targetPitchV
	} else {
		e.pitchV = e.targetPitchV
	}
	e.auxV = (1-e.auxAlpha)*e.auxV + e.auxAlpha*e.targetAuxV

	if e.gate {
		e.lastActivePitchV = e.pitchV
	}
}

// SnapshotOutputs returns the current output snapshot and consumes the
// one-shot retrigger flag.
func (e *Engine1) SnapshotOutputs() OutputSnapshot {
	snap := OutputSnapshot{
		PitchV:    e.pitchV,
		AuxV:      e.auxV,
		Gate:      e.gate,
		Retrigger: e.retrigger,
	}
	e.retrigger = false
	return snap
}

// ProcessInputs applies dispatcher events (spec.md §4.F "Inputs"). pipeline
// is the pressure pipeline, needed only for the Oct−-long rotary deadzone
// adjustment and physical-key reconciliation on latch-off.
func (e *Engine1) ProcessInputs(events InputEvents, pipeline *Pipeline) {
	if events.HoldShort {
		e.latch = !e.latch
		if !e.latch {
			e.stack.ReconcilePhysical(func(pitch uint8) bool {
				key := int(pitch) - keyPitchOffset
				if key < 0 || key >= numKeys {
					return false
				}
				return pipeline.IsPressed(key)
			})
			if e.stack.Len() == 0 {
				e.gate = false
				e.targetAuxV = 0
				e.targetPitchV = e.lastActivePitchV
			} else if top, ok := e.stack.Top(); ok {
				e.targetPitchV = midiToVoltage(top.Pitch, e.octaveOffset)
				e.targetAuxV = auxVoltsFor(top.Value)
			}
		}
	}

	if events.OctPlusShort {
		e.setOctaveOffset(e.octaveOffset + 1)
	}
	if events.OctMinusShort {
		e.setOctaveOffset(e.octaveOffset - 1)
	}

	if events.RotaryTurned {
		switch {
		case events.OctPlusLong:
			e.adjustAuxAlpha(events.RotaryDelta)
		case events.OctMinusLong:
			e.adjustDeadzone(events.RotaryDelta, pipeline)
		default:
			e.adjustGlideMs(events.RotaryDelta, events.RotaryVelocity)
		}
	}
}

func (e *Engine1) setOctaveOffset(v int) {
	e.octaveOffset = clampi(v, octaveOffsetMin, octaveOffsetMax)
	if top, ok := e.stack.Top(); ok {
		e.targetPitchV = midiToVoltage(top.Pitch, e.octaveOffset)
	}
}

// adjustAuxAlpha moves aux_alpha in 100 linear steps across its range,
// one rotary detent per step (spec.md §4.F).
func (e *Engine1) adjustAuxAlpha(delta int) {
	step := float32(auxAlphaMax-auxAlphaMin) / 100
	e.auxAlpha = clampf(e.auxAlpha+float32(delta)*step, auxAlphaMin, auxAlphaMax)
}

// adjustDeadzone moves the pipeline's deadzone in steps of MAX/50
// (spec.md §4.F).
func (e *Engine1) adjustDeadzone(delta int, pipeline *Pipeline) {
	step := deadzoneMax / 50
	next := int(pipeline.Deadzone()) + delta*step
	pipeline.SetDeadzone(uint16(clampi(next, 0, deadzoneMax)))
}

// adjustGlideMs moves glide_ms with a velocity-scaled step (spec.md §4.H).
func (e *Engine1) adjustGlideMs(delta int, velocity float32) {
	step := velocityScaledStep(velocity, glideStepMin, glideStepMax, glideStepGamma)
	e.glideMs = clampf(e.glideMs+float32(delta)*step, glideMsMin, glideMsMax)
}

// AuxAlpha exposes the shared smoothing parameter for Engine #2
// (spec.md §9 "Shared smoothing parameter"): passed by value each tick,
// never held across engines.
func (e *Engine1) AuxAlpha() float32 { return e.auxAlpha }

// Latch reports whether latch mode is engaged.
func (e *Engine1) Latch() bool { return e.latch }

// SetAuxAlpha and SetGlideMs install installation-wide defaults (loaded by
// the config package) before the engine starts running. Values are clamped
// to the same ranges the rotary adjusters enforce.
func (e *Engine1) SetAuxAlpha(v float32) { e.auxAlpha = clampf(v, auxAlphaMin, auxAlphaMax) }
func (e *Engine1) SetGlideMs(v float32)  { e.glideMs = clampf(v, glideMsMin, glideMsMax) }

// midiToVoltage implements spec.md §4.F's voltage mapping.
func midiToVoltage(pitch uint8, octaveOffset int) float32 {
	n := int(pitch) + 12*octaveOffset - refMIDI
	return centerVoltage + float32(n)/12*voltsPerOctave
}

// auxVoltsFor linearizes a [0, CVRes] pressure value to [0, 10] volts.
func auxVoltsFor(value uint16) float32 {
	return float32(value) / CVRes * 10
}

// velocityScaledStep implements spec.md §4.H.
func velocityScaledStep(velocity, minStep, maxStep, gamma float32) float32 {
	vNorm := clampf(velocity/rotaryVMax, 0, 1)
	return minStep + pow32(vNorm, gamma)*(maxStep-minStep)
}

package keyboard

import "github.com/corvidaudio/capsense-core/internal/clock"

// Mode identifies which play engine is active.
type Mode int

const (
	ModePressureGlide Mode = iota
	ModeInterval
	ModeMidi
)

// ModeSelector holds both engines as concrete, statically-allocated
// values and forwards note edges/input events to whichever is active
// (spec.md §4.I, DESIGN NOTES §9 "tagged variant... do not rely on
// virtual inheritance"). Only the active engine's output snapshot is
// ever read by the output commit stage.
type ModeSelector struct {
	mode Mode

	engine1 *Engine1
	engine2 *Engine2

	pendingEffect UIEffect
	hasPending    bool
}

// NewModeSelector constructs a ModeSelector with both engines at factory
// defaults, starting in PressureGlide mode.
func NewModeSelector() *ModeSelector {
	return &ModeSelector{
		mode:    ModePressureGlide,
		engine1: NewEngine1(),
		engine2: NewEngine2(),
	}
}

// Mode returns the currently active mode.
func (m *ModeSelector) Mode() Mode { return m.mode }

// Engine1 and Engine2 expose the concrete engines for configuration and
// tests; the Midi mode has no engine (it is an inert stub, spec.md §4.I).
func (m *ModeSelector) Engine1() *Engine1 { return m.engine1 }
func (m *ModeSelector) Engine2() *Engine2 { return m.engine2 }

// SetMode switches the active engine. Mode transition requests a one-shot
// UI effect; no engine state is preserved across the switch beyond what
// each engine already holds internally (spec.md §4.I).
func (m *ModeSelector) SetMode(mode Mode) {
	if mode == m.mode {
		return
	}
	m.mode = mode
	m.pendingEffect = EffectValidate
	m.hasPending = true
}

// SetNow must be called once at the start of every tick, before the
// pressure pipeline delivers NoteOn/NoteOff/AftertouchUpdate, so Engine #2
// has a timestamp available for double-tap detection even though its own
// Tick runs later in the fixed per-tick order (spec.md §5).
func (m *ModeSelector) SetNow(now clock.Time) {
	m.engine2.SetNow(now)
}

// NoteOn implements NoteSink, forwarding only to the active engine.
func (m *ModeSelector) NoteOn(key int, value uint16) {
	switch m.mode {
	case ModePressureGlide:
		m.engine1.NoteOn(key, value)
	case ModeInterval:
		m.engine2.NoteOn(key, value)
	case ModeMidi:
		// inert stub, per original_source/src/EngineMode3.h
	}
}

// NoteOff implements NoteSink.
func (m *ModeSelector) NoteOff(key int) {
	switch m.mode {
	case ModePressureGlide:
		m.engine1.NoteOff(key)
	case ModeInterval:
		m.engine2.NoteOff(key)
	case ModeMidi:
	}
}

// AftertouchUpdate implements NoteSink.
func (m *ModeSelector) AftertouchUpdate(key int, value uint16) {
	switch m.mode {
	case ModePressureGlide:
		m.engine1.AftertouchUpdate(key, value)
	case ModeInterval:
		m.engine2.AftertouchUpdate(key, value)
	case ModeMidi:
	}
}

// ProcessInputs forwards classified input events to the active engine and
// handles the Mode-long press mode cycle (spec.md §4.I: Mode forwards
// InputEvents each tick; the Mode button itself, when long-pressed, is
// the mode-cycle trigger, matching the original firmware's single
// "Mode held" cycle gesture).
func (m *ModeSelector) ProcessInputs(events InputEvents, pipeline *Pipeline) {
	if events.ModeLong {
		m.SetMode((m.mode + 1) % 3)
	}

	switch m.mode {
	case ModePressureGlide:
		m.engine1.ProcessInputs(events, pipeline)
	case ModeInterval:
		m.engine2.ProcessInputs(events)
	case ModeMidi:
	}
}

// Tick advances the active engine's internal clock/timing grid. Engine #2
// always receives Engine #1's current aux_alpha as a plain value, never a
// pointer, per DESIGN NOTES §9 ("Shared smoothing parameter").
func (m *ModeSelector) Tick(now clock.Time) {
	switch m.mode {
	case ModePressureGlide:
		m.engine1.Tick(now)
	case ModeInterval:
		m.engine2.SetNow(now)
		m.engine2.Tick(now, m.engine1.AuxAlpha())
	case ModeMidi:
	}
}

// SnapshotOutputs returns the active engine's output snapshot, with any
// pending mode-transition UI effect merged in (one-shot).
func (m *ModeSelector) SnapshotOutputs() OutputSnapshot {
	var snap OutputSnapshot
	switch m.mode {
	case ModePressureGlide:
		snap = m.engine1.SnapshotOutputs()
	case ModeInterval:
		snap = m.engine2.SnapshotOutputs()
	case ModeMidi:
		snap = OutputSnapshot{PitchV: centerVoltage, AuxV: 0, Gate: false, Retrigger: false}
	}
	if m.hasPending {
		snap.Effect = m.pendingEffect
		m.hasPending = false
	}
	return snap
}

package keyboard

import (
	"testing"

	"github.com/corvidaudio/capsense-core/internal/clock"
)

func TestModeSelectorForwardsOnlyToActiveEngine(t *testing.T) {
	m := NewModeSelector()
	m.NoteOn(0, 1000)

	if m.Engine1().stack.Len() != 1 {
		t.Fatalf("engine1 stack = %d, want 1", m.Engine1().stack.Len())
	}
	if m.Engine2().set.count != 0 {
		t.Fatalf("engine2 should not have received the note while inactive")
	}
}

func TestModeSelectorSwitchRequestsUIEffect(t *testing.T) {
	m := NewModeSelector()
	m.SetMode(ModeInterval)
	snap := m.SnapshotOutputs()
	if snap.Effect != EffectValidate {
		t.Fatalf("expected a one-shot validate effect on mode switch, got %v", snap.Effect)
	}

	snap2 := m.SnapshotOutputs()
	if snap2.Effect != EffectNone {
		t.Fatalf("effect should be one-shot, got %v on the following tick", snap2.Effect)
	}
}

func TestModeSelectorModeLongCyclesThroughModes(t *testing.T) {
	m := NewModeSelector()
	if m.Mode() != ModePressureGlide {
		t.Fatalf("expected to start in PressureGlide")
	}
	m.ProcessInputs(InputEvents{ModeLong: true}, nil)
	if m.Mode() != ModeInterval {
		t.Fatalf("expected Interval after one Mode-long cycle, got %v", m.Mode())
	}
	m.ProcessInputs(InputEvents{ModeLong: true}, nil)
	if m.Mode() != ModeMidi {
		t.Fatalf("expected Midi after two Mode-long cycles, got %v", m.Mode())
	}
	m.ProcessInputs(InputEvents{ModeLong: true}, nil)
	if m.Mode() != ModePressureGlide {
		t.Fatalf("expected wraparound back to PressureGlide, got %v", m.Mode())
	}
}

func TestModeSelectorMidiModeIsInert(t *testing.T) {
	m := NewModeSelector()
	m.SetMode(ModeMidi)
	m.NoteOn(0, 1000)
	m.NoteOff(0)
	m.Tick(clock.Time(0))
	snap := m.SnapshotOutputs()

	if snap.Gate {
		t.Fatalf("Midi mode must report gate closed")
	}
	if snap.PitchV != centerVoltage {
		t.Fatalf("Midi mode must report center voltage, got %v", snap.PitchV)
	}
}

package keyboard

import (
	"math"
	"testing"

	"github.com/corvidaudio/capsense-core/internal/clock"
)

func TestMidiToVoltageKey0(t *testing.T) {
	// spec.md §8 scenario 1: key 0 => pitch 36, octave_offset 0.
	got := midiToVoltage(36, 0)
	want := float32(5.0 - 11.0/12.0)
	if math.Abs(float64(got-want)) > 1e-4 {
		t.Fatalf("midiToVoltage(36,0) = %v, want %v", got, want)
	}
}

func TestEngine1NoteOnSetsGateAndRetrigger(t *testing.T) {
	e := NewEngine1()
	e.NoteOn(0, 0)

	if !e.gate {
		t.Fatalf("expected gate open after NoteOn")
	}
	snap := e.SnapshotOutputs()
	if !snap.Retrigger {
		t.Fatalf("expected retrigger on first NoteOn")
	}
	// Retrigger is one-shot: a second snapshot without a new edge must not
	// report it again.
	snap2 := e.SnapshotOutputs()
	if snap2.Retrigger {
		t.Fatalf("retrigger flag was not consumed")
	}
}

func TestEngine1NoteOnNoteOffRoundTrip(t *testing.T) {
	e := NewEngine1()
	before := *e

	e.NoteOn(0, 1000)
	e.NoteOff(0)

	// Round-trip per spec.md §8: note_on;note_off with latch off restores
	// state, except for the one-shot retrigger flag and lastActivePitchV
	// bookkeeping, which legitimately change.
	if e.stack.Len() != before.stack.Len() {
		t.Fatalf("stack length changed: got %d, want %d", e.stack.Len(), before.stack.Len())
	}
	if e.gate != before.gate {
		t.Fatalf("gate = %v, want %v", e.gate, before.gate)
	}
}

func TestEngine1LegatoGlide(t *testing.T) {
	e := NewEngine1()
	e.glideMs = 100
	e.NoteOn(0, 0) // pitch 36
	e.Tick(clock.Time(0))
	e.pitchV = e.targetPitchV // settle immediately for the test's baseline

	e.NoteOn(12, 0) // pitch 48, legato while gate already open
	now := clock.Time(0)
	for i := 0; i < 500; i++ {
		now += 1
		e.Tick(now)
	}

	want := midiToVoltage(48, 0)
	if math.Abs(float64(e.pitchV-want)) > 0.01*float64(want) {
		t.Fatalf("after 500ms glide pitchV = %v, want ~%v (within 1%%)", e.pitchV, want)
	}
}

func TestEngine1GlideZeroSnapsImmediately(t *testing.T) {
	e := NewEngine1()
	e.glideMs = 0
	e.NoteOn(0, 0)
	e.Tick(clock.Time(1))
	want := midiToVoltage(36, 0)
	if e.pitchV != want {
		t.Fatalf("pitchV = %v, want %v (snap with glide_ms=0)", e.pitchV, want)
	}
}

func TestEngine1LatchReconciliation(t *testing.T) {
	e := NewEngine1()
	e.NoteOn(0, 100)
	e.NoteOn(1, 200)

	e.ProcessInputs(InputEvents{HoldShort: true}, nil) // engage latch; no physical check needed on engage

	// Release key 0 physically; since latch is on, the stack is untouched.
	e.NoteOff(0)
	if e.stack.Len() != 2 {
		t.Fatalf("latch engaged: stack len = %d, want 2 (note_off ignored)", e.stack.Len())
	}

	p := NewPipeline(defaultMaxDelta())
	// Simulate key 1 still physically held, key 0 released.
	pressHeldKey(p, 1)

	e.ProcessInputs(InputEvents{HoldShort: true}, p) // disengage latch -> reconcile
	if e.stack.Len() != 1 {
		t.Fatalf("after latch-off reconciliation, stack len = %d, want 1", e.stack.Len())
	}
	if top, ok := e.stack.Top(); !ok || top.Pitch != 1+keyPitchOffset {
		t.Fatalf("expected surviving note to be key 1's pitch")
	}
}

// pressHeldKey forces key's pipeline state to isPressed=true without
// going through a full tick, for tests that only need IsPressed(key).
func pressHeldKey(p *Pipeline, key int) {
	p.keys[key].isPressed = true
}

func TestEngine1OctaveOffsetClamped(t *testing.T) {
	e := NewEngine1()
	for i := 0; i < 10; i++ {
		e.setOctaveOffset(e.octaveOffset + 1)
	}
	if e.octaveOffset != octaveOffsetMax {
		t.Fatalf("octaveOffset = %d, want clamped to %d", e.octaveOffset, octaveOffsetMax)
	}
	for i := 0; i < 10; i++ {
		e.setOctaveOffset(e.octaveOffset - 1)
	}
	if e.octaveOffset != octaveOffsetMin {
		t.Fatalf("octaveOffset = %d, want clamped to %d", e.octaveOffset, octaveOffsetMin)
	}
}

package keyboard

import (
	"math/rand/v2"

	"github.com/corvidaudio/capsense-core/internal/clock"
)

// ArpPattern is one of the 12 step patterns Engine #2 supports
// (spec.md §4.G). This is the 12-pattern/gate_length variant; the
// alternative 15-pattern/shuffle variant found in the original source is
// deliberately not implemented (see DESIGN.md).
type ArpPattern int

const (
	PatternUp ArpPattern = iota
	PatternDown
	PatternUpDown
	PatternRandom
	PatternChord
	PatternUpOctave
	PatternDownOctave
	PatternConverge
	PatternDiverge
	PatternPedalUp
	PatternCascade
	PatternProbability
	numArpPatterns = PatternProbability + 1
)

// Engine2 is the arpeggiator engine (spec.md §4.G).
type Engine2 struct {
	set arpSet

	pattern      ArpPattern
	direction    bool // ascending, for UpDown
	octaveToggle bool // for Up/DownOctave
	cascadeCount int
	pedalIndex   int
	stepCounter  int

	index int

	bpm          float32
	gateLength   float32
	latch        bool
	octaveOffset int

	lastStepTime    clock.Time
	hasLastStepTime bool
	gateOffTime     clock.Time
	gateOpen        bool
	retrigger       bool

	targetPitchV float32
	pitchV       float32
	targetAuxV   float32
	auxV         float32

	currentNow clock.Time
}

// NewEngine2 constructs an Engine2 with factory defaults.
func NewEngine2() *Engine2 {
	return &Engine2{
		pattern:      PatternUp,
		direction:    true,
		pedalIndex:   1,
		bpm:          120,
		gateLength:   0.5,
		pitchV:       centerVoltage,
		targetPitchV: centerVoltage,
	}
}

// SetNow records the current tick's time so NoteOn/NoteOff (delivered
// before Tick per spec.md §5's ordering guarantees) can use it for
// double-tap detection and new-note insertion timestamps.
func (e *Engine2) SetNow(now clock.Time) { e.currentNow = now }

// NoteOn implements NoteSink.
func (e *Engine2) NoteOn(key int, value uint16) {
	pitch := uint8(key + keyPitchOffset)

	if idx := e.set.indexOf(pitch); idx >= 0 {
		if e.latch && e.currentNow.Since(e.set.lastPressTime[idx]) < clock.Time(doubleTapMs) {
			e.removeAt(idx) // double-tap to drop
			return
		}
		e.set.pressures[idx] = value
		e.set.lastPressTime[idx] = e.currentNow
		return
	}

	if e.set.count == arpSetCapacity {
		// Full: evict the least recently pressed note (FIFO), wherever it
		// sits in the pitch-sorted set.
		oldest := 0
		for i := 1; i < e.set.count; i++ {
			if e.set.lastPressTime[i].Before(e.set.lastPressTime[oldest]) {
				oldest = i
			}
		}
		e.removeAt(oldest)
	}
	newIdx, _ := e.set.insert(pitch, value, e.currentNow)
	if newIdx <= e.index {
		e.index++
	}
	if e.index >= e.set.count {
		e.index = e.set.count - 1
	}
	if e.index < 0 {
		e.index = 0
	}
}

// NoteOff implements NoteSink.
func (e *Engine2) NoteOff(key int) {
	if e.latch {
		return
	}
	pitch := uint8(key + keyPitchOffset)
	if idx := e.set.indexOf(pitch); idx >= 0 {
		e.removeAt(idx)
	}
}

// AftertouchUpdate implements NoteSink.
func (e *Engine2) AftertouchUpdate(key int, value uint16) {
	pitch := uint8(key + keyPitchOffset)
	e.set.updateValue(pitch, value)
}

func (e *Engine2) removeAt(idx int) {
	e.set.remove(idx)
	if e.set.count == 0 {
		e.index = 0
		e.gateOpen = false
		e.targetAuxV = 0
		e.hasLastStepTime = false
		return
	}
	if idx <= e.index && e.index > 0 {
		e.index--
	}
	if e.index >= e.set.count {
		e.index = e.set.count - 1
	}
}

// Tick runs the BPM-locked drift-free step grid and the shared aux
// smoothing (spec.md §4.G); pitch jumps straight to its target. auxAlpha is Engine #1's shared smoothing
// parameter, passed by value (spec.md §9).
func (e *Engine2) Tick(now clock.Time, auxAlpha float32) {
	n := e.set.count

	switch {
	case n == 0:
		e.gateOpen = false
		e.targetAuxV = 0
		e.hasLastStepTime = false
	case n == 1:
		if !e.gateOpen {
			e.retrigger = true
		}
		e.gateOpen = true
		e.targetPitchV = midiToVoltage(e.set.notes[0], e.octaveOffset)
		e.targetAuxV = auxVoltsFor(e.set.pressures[0])
		e.hasLastStepTime = false
	default:
		e.tickGrid(now, n)
	}

	e.auxV = (1-auxAlpha)*e.auxV + auxAlpha*e.targetAuxV
	e.pitchV = e.targetPitchV
}

func (e *Engine2) tickGrid(now clock.Time, n int) {
	t := stepIntervalMs(e.bpm)

	if !e.hasLastStepTime {
		// Back-date the grid by one interval so the first tick after the
		// set becomes steppable fires a step immediately rather than
		// waiting a full T.
		e.lastStepTime = now - t
		e.hasLastStepTime = true
	}

	if now.Since(e.lastStepTime) >= t {
		e.lastStepTime += t
		if now.Since(e.lastStepTime) > 2*t {
			e.lastStepTime = now
		}
		e.advanceStep(n, t)
	}

	if e.gateOpen && !now.Before(e.gateOffTime) {
		e.gateOpen = false
	}
}

func stepIntervalMs(bpm float32) clock.Time {
	return clock.Time(60000 / bpm)
}

// advanceStep computes the next pattern index, sets the new target
// voltages, and schedules the gate-off time.
func (e *Engine2) advanceStep(n int, t clock.Time) {
	pitchShift := e.nextIndex(n)
	pitch := int(e.set.notes[e.index]) + pitchShift
	e.targetPitchV = midiToVoltage(uint8(pitch), e.octaveOffset)
	e.targetAuxV = auxVoltsFor(e.set.pressures[e.index])
	e.retrigger = true
	e.gateOpen = true
	e.gateOffTime = e.lastStepTime + clock.Time(float32(t)*e.gateLength)
}

// nextIndex advances e.index per the active pattern and returns a
// semitone shift to apply (used only by Up/DownOctave).
func (e *Engine2) nextIndex(n int) (pitchShift int) {
	switch e.pattern {
	case PatternUp, PatternChord:
		e.index = (e.index + 1) % n
	case PatternDown:
		e.index = (e.index - 1 + n) % n
	case PatternUpDown:
		e.index = e.stepUpDown(n)
	case PatternRandom:
		e.index = e.stepRandom(n)
	case PatternUpOctave:
		e.index = (e.index + 1) % n
		if e.index == 0 {
			e.octaveToggle = !e.octaveToggle
		}
		if e.octaveToggle {
			pitchShift = 12
		}
	case PatternDownOctave:
		e.index = (e.index - 1 + n) % n
		if e.index == n-1 {
			e.octaveToggle = !e.octaveToggle
		}
		if e.octaveToggle {
			pitchShift = -12
		}
	case PatternConverge:
		e.index = e.stepConverge(n)
	case PatternDiverge:
		e.index = e.stepDiverge(n)
	case PatternPedalUp:
		e.index = e.stepPedalUp(n)
	case PatternCascade:
		e.index = e.stepCascade(n)
	case PatternProbability:
		e.index = e.stepProbability(n)
	}
	return pitchShift
}

func (e *Engine2) stepUpDown(n int) int {
	if n == 1 {
		return 0
	}
	if n == 2 {
		e.index = 1 - e.index
		return e.index
	}
	if e.direction {
		e.index++
		if e.index >= n-1 {
			e.index = n - 1
			e.direction = false
		}
	} else {
		e.index--
		if e.index <= 0 {
			e.index = 0
			e.direction = true
		}
	}
	return e.index
}

func (e *Engine2) stepRandom(n int) int {
	if n <= 1 {
		return 0
	}
	r := rand.IntN(n - 1)
	if r >= e.index {
		r++
	}
	return r
}

func (e *Engine2) stepConverge(n int) int {
	k := e.stepCounter
	e.stepCounter++
	kk := k % (2 * n)
	if kk%2 == 0 {
		return kk / 2
	}
	return n - 1 - kk/2
}

func (e *Engine2) stepDiverge(n int) int {
	k := e.stepCounter
	e.stepCounter++
	center := n / 2
	var raw int
	switch {
	case k == 0:
		raw = center
	case k%2 == 1:
		raw = center - (k+1)/2
	default:
		raw = center + k/2
	}
	return ((raw % n) + n) % n
}

func (e *Engine2) stepPedalUp(n int) int {
	e.stepCounter++
	if e.stepCounter%2 == 1 {
		return 0
	}
	idx := e.pedalIndex
	e.pedalIndex++
	if e.pedalIndex >= n {
		e.pedalIndex = 1
	}
	return idx
}

func (e *Engine2) stepCascade(n int) int {
	idx := e.index
	e.cascadeCount++
	if e.cascadeCount >= 2 {
		e.cascadeCount = 0
		idx = (idx + 1) % n
	}
	return idx
}

func (e *Engine2) stepProbability(n int) int {
	total := n * (n + 1) / 2
	r := rand.IntN(total)
	cum := 0
	for i := 0; i < n; i++ {
		cum += n - i
		if r < cum {
			return i
		}
	}
	return n - 1
}

// SnapshotOutputs returns the current output snapshot and consumes the
// one-shot retrigger flag.
func (e *Engine2) SnapshotOutputs() OutputSnapshot {
	snap := OutputSnapshot{
		PitchV:    e.pitchV,
		AuxV:      e.auxV,
		Gate:      e.gateOpen,
		Retrigger: e.retrigger,
	}
	e.retrigger = false
	return snap
}

// ProcessInputs applies dispatcher events (spec.md §4.G "Inputs").
func (e *Engine2) ProcessInputs(events InputEvents) {
	if events.HoldShort {
		wasLatch := e.latch
		e.latch = !e.latch
		if wasLatch && !e.latch {
			e.resetPatternState()
		}
	}
	if events.OctPlusShort {
		e.octaveOffset = clampi(e.octaveOffset+1, octaveOffsetMin, octaveOffsetMax)
	}
	if events.OctMinusShort {
		e.octaveOffset = clampi(e.octaveOffset-1, octaveOffsetMin, octaveOffsetMax)
	}
	if events.RotaryTurned {
		switch {
		case events.OctPlusLong:
			e.cyclePattern(events.RotaryDelta)
		case events.OctMinusLong:
			e.adjustGateLength(events.RotaryDelta)
		default:
			e.adjustBPM(events.RotaryDelta, events.RotaryVelocity)
		}
	}
}

func (e *Engine2) resetPatternState() {
	e.index = 0
	if e.set.count > 0 {
		e.index = clampi(e.index, 0, e.set.count-1)
	}
	e.direction = true
	e.octaveToggle = false
	e.cascadeCount = 0
	e.pedalIndex = 1
	e.stepCounter = 0
	e.hasLastStepTime = false
}

// cyclePattern moves to a new pattern with modulo-correct wraparound for
// negative deltas, and resets the per-pattern stepping state.
func (e *Engine2) cyclePattern(delta int) {
	np := (int(e.pattern) + delta) % int(numArpPatterns)
	if np < 0 {
		np += int(numArpPatterns)
	}
	e.pattern = ArpPattern(np)
	e.direction = true
	e.octaveToggle = false
	e.cascadeCount = 0
	e.pedalIndex = 1
	e.stepCounter = 0
	if e.set.count > 0 {
		e.index = clampi(e.index, 0, e.set.count-1)
	} else {
		e.index = 0
	}
}

func (e *Engine2) adjustGateLength(delta int) {
	e.gateLength = clampf(e.gateLength+float32(delta)*0.05, gateLengthMin, gateLengthMax)
}

func (e *Engine2) adjustBPM(delta int, velocity float32) {
	step := velocityScaledStep(velocity, bpmStepMin, bpmStepMax, bpmStepGamma)
	e.bpm = clampf(e.bpm+float32(delta)*step, bpmMin, bpmMax)
}

// Pattern, BPM, GateLength, Latch, OctaveOffset expose read access for
// tests, the config package, and UI diagnostics.
func (e *Engine2) Pattern() ArpPattern { return e.pattern }
func (e *Engine2) BPM() float32        { return e.bpm }
func (e *Engine2) GateLength() float32 { return e.gateLength }
func (e *Engine2) Latch() bool         { return e.latch }
func (e *Engine2) Count() int          { return e.set.count }
func (e *Engine2) Index() int          { return e.index }

// SetBPM, SetGateLength, and SetPattern install installation-wide defaults
// (loaded by the config package) before the engine starts running. BPM and
// gate length are clamped the same way the rotary adjusters clamp them;
// SetPattern ignores a value outside the pattern set.
func (e *Engine2) SetBPM(v float32)        { e.bpm = clampf(v, bpmMin, bpmMax) }
func (e *Engine2) SetGateLength(v float32) { e.gateLength = clampf(v, gateLengthMin, gateLengthMax) }

func (e *Engine2) SetPattern(p ArpPattern) {
	if p < 0 || p >= numArpPatterns {
		return
	}
	e.pattern = p
}

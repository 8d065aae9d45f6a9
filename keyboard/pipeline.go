package keyboard

import "math"

// keyState is the per-key pipeline state (spec.md §3). There are 24
// instances, held inline inside Pipeline with no heap allocation.
type keyState struct {
	filtered uint16
	baseline uint16

	isPressed     bool
	lastIsPressed bool

	pressDeltaStart uint16

	slewed   float32
	smoothed float32
	history  [historyLen]float32
	historyIndex uint8

	pressThreshold   uint16
	releaseThreshold uint16
	maxDelta         uint16
}

// Pipeline runs the 24-key delta → FSM → shaping → smoothing chain every
// tick and calls into the active engine through NoteSink.
type Pipeline struct {
	keys [numKeys]keyState

	deadzone      uint16  // additional delta above press_threshold before aftertouch rises, [0,250]
	responseShape float32 // s in [0,1]
}

// NewPipeline constructs a Pipeline with per-key max-delta taken from a
// loaded calibration record, deriving thresholds before the first tick.
func NewPipeline(maxDelta [numKeys]uint16) *Pipeline {
	p := &Pipeline{responseShape: 0.5}
	for i := range p.keys {
		p.keys[i].maxDelta = maxDelta[i]
		p.keys[i].pressThreshold, p.keys[i].releaseThreshold = deriveThresholds(maxDelta[i])
	}
	return p
}

// deriveThresholds computes press/release thresholds from a max-delta
// value (spec.md §4.B.2), enforcing release < press.
func deriveThresholds(maxDelta uint16) (press, release uint16) {
	press = floorU16(0.15*float64(maxDelta), pressMinFloor)
	release = floorU16(0.08*float64(maxDelta), releaseMinFloor)
	if release >= press {
		if press == 0 {
			release = 0
		} else {
			release = press - 1
		}
	}
	return press, release
}

func floorU16(v float64, floor uint16) uint16 {
	r := uint16(math.Floor(v))
	if r < floor {
		return floor
	}
	return r
}

// SetMaxDelta updates a single key's max-delta and recomputes its
// derived thresholds. This is the only way calibration mutates the
// pipeline's thresholds.
func (p *Pipeline) SetMaxDelta(key int, maxDelta uint16) {
	p.keys[key].maxDelta = maxDelta
	p.keys[key].pressThreshold, p.keys[key].releaseThreshold = deriveThresholds(maxDelta)
}

// SetDeadzone sets the deadzone offset, clamped to [0, 250].
func (p *Pipeline) SetDeadzone(d uint16) {
	if d > deadzoneMax {
		d = deadzoneMax
	}
	p.deadzone = d
}

// Deadzone returns the current deadzone offset.
func (p *Pipeline) Deadzone() uint16 { return p.deadzone }

// SetResponseShape sets the response-curve parameter s, clamped to [0,1].
func (p *Pipeline) SetResponseShape(s float32) {
	p.responseShape = clampf(s, 0, 1)
}

// ResponseShape returns the current response-curve parameter.
func (p *Pipeline) ResponseShape() float32 { return p.responseShape }

// PressThreshold and ReleaseThreshold expose a key's current derived
// thresholds, mainly for tests and calibration diagnostics.
func (p *Pipeline) PressThreshold(key int) uint16   { return p.keys[key].pressThreshold }
func (p *Pipeline) ReleaseThreshold(key int) uint16 { return p.keys[key].releaseThreshold }
func (p *Pipeline) IsPressed(key int) bool          { return p.keys[key].isPressed }

// Tick runs one scan over all 24 keys, in key order, calling sink's
// NoteOn/NoteOff/AftertouchUpdate methods as edges and held-state updates
// occur.
func (p *Pipeline) Tick(filtered, baseline [numKeys]uint16, sink NoteSink) {
	for i := 0; i < numKeys; i++ {
		k := &p.keys[i]
		k.filtered = filtered[i]
		k.baseline = baseline[i]

		var d uint16
		if baseline[i] > filtered[i] {
			d = baseline[i] - filtered[i]
		}

		k.lastIsPressed = k.isPressed
		if !k.isPressed {
			if d > k.pressThreshold {
				k.isPressed = true
				k.pressDeltaStart = d
				sink.NoteOn(i, 0) // value(d) at the instant of onset is always 0: norm(d) = 0
			}
			continue
		}

		if d < k.releaseThreshold {
			k.isPressed = false
			k.slewed = 0
			k.smoothed = 0
			for h := range k.history {
				k.history[h] = 0
			}
			k.historyIndex = 0
			sink.NoteOff(i)
			continue
		}

		target := p.computeTarget(k, d)
		k.slewed += clampf(target-k.slewed, -slewPerTick, slewPerTick)
		k.history[k.historyIndex] = k.slewed
		k.historyIndex = (k.historyIndex + 1) % historyLen
		k.smoothed = meanHistory(&k.history)
		sink.AftertouchUpdate(i, uint16(clampf(k.smoothed, 0, CVRes)))
	}
}

// computeTarget applies the deadzone/normalize/shape chain (spec.md
// §4.B.3) to produce the slew limiter's target value for a held key.
func (p *Pipeline) computeTarget(k *keyState, d uint16) float32 {
	pd := float32(k.pressDeltaStart) + float32(p.deadzone)
	maxD := float32(k.maxDelta)

	var norm float32
	if maxD > pd {
		norm = clampf((float32(d)-pd)/(maxD-pd), 0, 1)
	}

	shaped := shapeResponse(norm, p.responseShape)
	return shaped * CVRes
}

func meanHistory(h *[historyLen]float32) float32 {
	var sum float32
	for _, v := range h {
		sum += v
	}
	return sum / historyLen
}

// ForceIdle resets every currently-pressed key to idle and notifies sink
// of each implied note-off. Used when the touch front-end reports a bus
// failure, per spec.md §7 ("the pipeline suppresses all note events").
func (p *Pipeline) ForceIdle(sink NoteSink) {
	for i := range p.keys {
		k := &p.keys[i]
		if k.isPressed {
			k.isPressed = false
			k.slewed = 0
			k.smoothed = 0
			for h := range k.history {
				k.history[h] = 0
			}
			k.historyIndex = 0
			sink.NoteOff(i)
		}
	}
}

package keyboard

import "github.com/corvidaudio/capsense-core/internal/clock"

// quadratureTable maps [previous 2-bit A/B state][new 2-bit A/B state] to
// a direction: +1, -1, or 0 for a transition with no valid quadrature
// meaning (a double-bit jump, electrical noise, or no change). Grounded
// on original_source/src/SimpleEncoder.h's QUAD_STATES table.
var quadratureTable = [4][4]int{
	{0, -1, 1, 0},
	{1, 0, 0, -1},
	{-1, 0, 0, 1},
	{0, 1, -1, 0},
}

// rotaryDecoder is the polled quadrature decoder plus velocity tracker
// behind the Live rotary control (spec.md §4.E).
type rotaryDecoder struct {
	state int // current 2-bit A/B state

	lastTransitionTime clock.Time
	hasLastTransition  bool

	velocity float32
}

// tick decodes one sample of A/B, debounces transitions under 2ms, and
// updates the smoothed velocity. It returns (delta, velocity, turned).
func (r *rotaryDecoder) tick(now clock.Time, a, b bool) (delta int, velocity float32, turned bool) {
	newState := 0
	if a {
		newState |= 0b10
	}
	if b {
		newState |= 0b01
	}

	if newState != r.state {
		if r.hasLastTransition && now.Since(r.lastTransitionTime) < rotaryDebounceMs {
			// Bounce: too soon after the last transition, ignore.
			return 0, r.velocity, false
		}

		dir := quadratureTable[r.state][newState]
		r.state = newState

		if dir != 0 {
			var dtMs clock.Time = 1
			if r.hasLastTransition {
				dtMs = now.Since(r.lastTransitionTime)
				if dtMs == 0 {
					dtMs = 1
				}
			}
			r.lastTransitionTime = now
			r.hasLastTransition = true

			vInst := clampf(float32(abs(dir))*rotaryWindowMs/float32(dtMs), 0, rotaryVMax)
			r.velocity = 0.3*vInst + 0.7*r.velocity
			return dir, r.velocity, true
		}
		r.lastTransitionTime = now
		r.hasLastTransition = true
		return 0, r.velocity, false
	}

	// Idle: decay velocity to zero after 2W ms of no transitions.
	if r.hasLastTransition && now.Since(r.lastTransitionTime) > 2*rotaryWindowMs {
		r.velocity *= rotaryDecayFactor
		if r.velocity < 0.1 {
			r.velocity = 0
		}
	}
	return 0, r.velocity, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

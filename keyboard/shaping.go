package keyboard

import "math"

// shapeResponse maps a normalized pressure x in [0,1] through the single
// response-curve parameter s in [0,1] (spec.md §4.B.3). For s < 0.5 it
// mixes linear with a quartic exponential curve; for s >= 0.5 it mixes
// linear with a twice-iterated smoothstep.
func shapeResponse(x float32, s float32) float32 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	if s < 0.5 {
		t := 1 - 2*s
		exp4 := float32(math.Pow(float64(x), 4))
		return (1-t)*x + t*exp4
	}

	t := 2*s - 1
	smooth := smoothstep(x)
	smooth = smoothstep(smooth)
	return (1-t)*x + t*smooth
}

// smoothstep is the classic x²(3−2x) Hermite ease curve.
func smoothstep(x float32) float32 {
	return x * x * (3 - 2*x)
}

// clampf clamps x to [lo, hi].
func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// pow32 is float32 math.Pow, used for the velocity-scaled rotary step
// curve (spec.md §4.H) where the exponent is not always an integer.
func pow32(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}

// clampi clamps x to [lo, hi] for integer types.
func clampi(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

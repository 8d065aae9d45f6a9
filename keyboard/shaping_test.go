package keyboard

import (
	"math"
	"testing"
)

func TestShapeResponseBoundaries(t *testing.T) {
	xs := []float32{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1}

	t.Run("s=0 is pure quartic", func(t *testing.T) {
		for _, x := range xs {
			got := shapeResponse(x, 0)
			want := float32(math.Pow(float64(x), 4))
			if math.Abs(float64(got-want)) > 1e-5 {
				t.Fatalf("x=%v: got %v, want %v", x, got, want)
			}
		}
	})

	t.Run("s=0.5 is exactly linear", func(t *testing.T) {
		for _, x := range xs {
			got := shapeResponse(x, 0.5)
			if math.Abs(float64(got-x)) > 1e-6 {
				t.Fatalf("x=%v: got %v, want %v (linear)", x, got, x)
			}
		}
	})

	t.Run("s=1 is twice-iterated smoothstep", func(t *testing.T) {
		for _, x := range xs {
			got := shapeResponse(x, 1)
			want := smoothstep(smoothstep(x))
			if math.Abs(float64(got-want)) > 1e-6 {
				t.Fatalf("x=%v: got %v, want %v", x, got, want)
			}
		}
	})
}

func TestShapeResponseClampsOutOfRange(t *testing.T) {
	if got := shapeResponse(-0.5, 0.5); got != 0 {
		t.Fatalf("shapeResponse(-0.5, 0.5) = %v, want 0", got)
	}
	if got := shapeResponse(1.5, 0.5); got != 1 {
		t.Fatalf("shapeResponse(1.5, 0.5) = %v, want 1", got)
	}
}

func TestSmoothstepEndpoints(t *testing.T) {
	if smoothstep(0) != 0 {
		t.Fatalf("smoothstep(0) != 0")
	}
	if smoothstep(1) != 1 {
		t.Fatalf("smoothstep(1) != 1")
	}
}

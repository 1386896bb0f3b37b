package keyframe

import (
	"math"
	"testing"

	"motioncanvas/internal/element"
)

func TestLerpScalarAndPoint(t *testing.T) {
	v := Lerp(ScalarValue(0), ScalarValue(10), 0.3)
	if math.Abs(v.Scalar-3) > 1e-9 {
		t.Errorf("scalar lerp = %v, want 3", v.Scalar)
	}

	v = Lerp(PointValue(0, 10), PointValue(100, 20), 0.5)
	if v.Point.X != 50 || v.Point.Y != 15 {
		t.Errorf("point lerp = (%v, %v), want (50, 15)", v.Point.X, v.Point.Y)
	}

	v = Lerp(SizeValue(10, 10), SizeValue(20, 40), 0.5)
	if v.Size.Width != 15 || v.Size.Height != 25 {
		t.Errorf("size lerp = (%v, %v), want (15, 25)", v.Size.Width, v.Size.Height)
	}
}

func TestLerpColorMidpoint(t *testing.T) {
	black := element.Color{R: 0, G: 0, B: 0, A: 1}
	white := element.Color{R: 1, G: 1, B: 1, A: 0}
	v := Lerp(ColorValue(black), ColorValue(white), 0.5)

	for name, got := range map[string]float64{
		"R": v.Color.R, "G": v.Color.G, "B": v.Color.B, "A": v.Color.A,
	} {
		if math.Abs(got-0.5) > 1e-9 {
			t.Errorf("channel %s = %v, want 0.5", name, got)
		}
	}
}

func TestLerpMismatchedKindsSteps(t *testing.T) {
	a := ScalarValue(1)
	b := PointValue(2, 2)

	if v := Lerp(a, b, 0.99); v.Kind != ValueScalar {
		t.Errorf("before t=1: got kind %s, want scalar", v.Kind)
	}
	if v := Lerp(a, b, 1); v.Kind != ValuePoint {
		t.Errorf("at t=1: got kind %s, want point", v.Kind)
	}
}

func TestLerpPoints(t *testing.T) {
	a := PointsValue([]element.Point{{X: 0, Y: 0}, {X: 10, Y: 10}})
	b := PointsValue([]element.Point{{X: 10, Y: 0}, {X: 10, Y: 30}})

	v := Lerp(a, b, 0.5)
	if v.Points[0].X != 5 || v.Points[1].Y != 20 {
		t.Errorf("pairwise lerp = %+v", v.Points)
	}

	// Length mismatch steps instead of interpolating.
	c := PointsValue([]element.Point{{X: 1, Y: 1}})
	v = Lerp(a, c, 0.5)
	if len(v.Points) != 2 {
		t.Errorf("mismatched lengths at t=0.5: got %d points, want 2", len(v.Points))
	}
	v = Lerp(a, c, 1)
	if len(v.Points) != 1 {
		t.Errorf("mismatched lengths at t=1: got %d points, want 1", len(v.Points))
	}
}

func TestPointsValueCopiesInput(t *testing.T) {
	src := []element.Point{{X: 1, Y: 2}}
	v := PointsValue(src)
	src[0].X = 99
	if v.Points[0].X != 1 {
		t.Error("PointsValue aliased the caller's slice")
	}

	clone := v.Clone()
	clone.Points[0].Y = 77
	if v.Points[0].Y != 2 {
		t.Error("Clone aliased the original point list")
	}
}

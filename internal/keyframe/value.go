// Package keyframe implements per-property animation tracks: ordered
// keyframes of one value type, interpolated at arbitrary times.
package keyframe

import (
	"github.com/lucasb-eyer/go-colorful"

	"motioncanvas/internal/element"
)

// ValueKind tags the variant held by a Value. A track holds values of
// exactly one kind.
type ValueKind string

const (
	ValueScalar ValueKind = "scalar"
	ValuePoint  ValueKind = "point"
	ValueSize   ValueKind = "size"
	ValueColor  ValueKind = "color"
	ValueText   ValueKind = "text"
	ValuePoints ValueKind = "points"
)

// Value is the tagged variant carried by a keyframe. Only the field matching
// Kind is meaningful.
type Value struct {
	Kind   ValueKind
	Scalar float64
	Point  element.Point
	Size   element.Size
	Color  element.Color
	Text   string
	Points []element.Point
}

func ScalarValue(v float64) Value { return Value{Kind: ValueScalar, Scalar: v} }

func PointValue(x, y float64) Value {
	return Value{Kind: ValuePoint, Point: element.Point{X: x, Y: y}}
}

func SizeValue(w, h float64) Value {
	return Value{Kind: ValueSize, Size: element.Size{Width: w, Height: h}}
}

func ColorValue(c element.Color) Value { return Value{Kind: ValueColor, Color: c} }

func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

func PointsValue(pts []element.Point) Value {
	out := make([]element.Point, len(pts))
	copy(out, pts)
	return Value{Kind: ValuePoints, Points: out}
}

// Clone returns an independent copy of v.
func (v Value) Clone() Value {
	if v.Kind == ValuePoints {
		return PointsValue(v.Points)
	}
	return v
}

// Lerp interpolates between a and b at eased progress t in [0,1].
// Continuous kinds interpolate component-wise; text steps to b once t
// reaches 1. Point lists interpolate pairwise when lengths match and step
// otherwise. Mismatched kinds also step.
func Lerp(a, b Value, t float64) Value {
	if a.Kind != b.Kind {
		return step(a, b, t)
	}
	switch a.Kind {
	case ValueScalar:
		return ScalarValue(lerp(a.Scalar, b.Scalar, t))
	case ValuePoint:
		return PointValue(lerp(a.Point.X, b.Point.X, t), lerp(a.Point.Y, b.Point.Y, t))
	case ValueSize:
		return SizeValue(lerp(a.Size.Width, b.Size.Width, t), lerp(a.Size.Height, b.Size.Height, t))
	case ValueColor:
		return ColorValue(lerpColor(a.Color, b.Color, t))
	case ValuePoints:
		if len(a.Points) != len(b.Points) {
			return step(a, b, t)
		}
		pts := make([]element.Point, len(a.Points))
		for i := range pts {
			pts[i].X = lerp(a.Points[i].X, b.Points[i].X, t)
			pts[i].Y = lerp(a.Points[i].Y, b.Points[i].Y, t)
		}
		return Value{Kind: ValuePoints, Points: pts}
	default:
		return step(a, b, t)
	}
}

func step(a, b Value, t float64) Value {
	if t >= 1 {
		return b.Clone()
	}
	return a.Clone()
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpColor blends channels in linear RGB and the alpha separately.
func lerpColor(a, b element.Color, t float64) element.Color {
	ca := colorful.Color{R: a.R, G: a.G, B: a.B}
	cb := colorful.Color{R: b.R, G: b.G, B: b.B}
	blended := ca.BlendRgb(cb, t)
	return element.Color{R: blended.R, G: blended.G, B: blended.B, A: lerp(a.A, b.A, t)}
}

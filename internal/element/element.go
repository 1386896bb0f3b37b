// Package element defines the canvas element model shared by the timeline,
// renderer and exporters. Elements are plain values: mutation happens by
// replacing the whole element, never through shared references.
package element

import "math"

// Kind discriminates the element union.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
	KindPath      Kind = "path"
)

// Animatable property names used as track keys.
const (
	PropPosition = "position"
	PropSize     = "size"
	PropRotation = "rotation"
	PropOpacity  = "opacity"
	PropFill     = "fill"
	PropText     = "text"
	PropFontSize = "fontSize"
	PropPath     = "path"
)

// Point is a 2D point in canvas coordinates.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Color is an RGBA color with channels in [0,1].
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
	A float64 `yaml:"a"`
}

// Alignment positions text horizontally inside its bounding box.
type Alignment string

const (
	AlignLeading  Alignment = "leading"
	AlignCenter   Alignment = "center"
	AlignTrailing Alignment = "trailing"
)

// Element is one item on the canvas. Position is the top-left corner of the
// bounding box; rotation is in degrees around the box center.
type Element struct {
	ID       string  `yaml:"id"`
	Kind     Kind    `yaml:"kind"`
	Position Point   `yaml:"position"`
	Size     Size    `yaml:"size"`
	Rotation float64 `yaml:"rotation,omitempty"`
	Opacity  float64 `yaml:"opacity"`
	Fill     Color   `yaml:"fill"`

	// Per-kind payload.
	Text      string    `yaml:"text,omitempty"`
	TextAlign Alignment `yaml:"textAlign,omitempty"`
	FontSize  float64   `yaml:"fontSize,omitempty"`
	AssetRef  string    `yaml:"asset,omitempty"`
	Points    []Point   `yaml:"points,omitempty"`
}

// Clone returns an independent copy, including the path point list.
func (e Element) Clone() Element {
	out := e
	if len(e.Points) > 0 {
		out.Points = make([]Point, len(e.Points))
		copy(out.Points, e.Points)
	}
	return out
}

// Center returns the center of the bounding box.
func (e Element) Center() Point {
	return Point{
		X: e.Position.X + e.Size.Width/2,
		Y: e.Position.Y + e.Size.Height/2,
	}
}

// NormalizeRotation maps an angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Clamp01 clamps v into [0, 1]. Used for opacity and progress values.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

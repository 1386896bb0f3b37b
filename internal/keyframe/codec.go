package keyframe

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"motioncanvas/internal/element"
)

// TrackDocument is the persisted form of a track: ordered
// (time, tagged value, easing name) triples keyed by element and property.
type TrackDocument struct {
	Element   string             `yaml:"element"`
	Property  string             `yaml:"property"`
	Keyframes []KeyframeDocument `yaml:"keyframes"`
}

// KeyframeDocument is one persisted keyframe triple.
type KeyframeDocument struct {
	Time   float64 `yaml:"time"`
	Value  Value   `yaml:"value"`
	Easing string  `yaml:"easing"`
}

// Document converts the track to its persisted form.
func (t *Track) Document() TrackDocument {
	doc := TrackDocument{
		Element:   t.ElementID,
		Property:  t.Property,
		Keyframes: make([]KeyframeDocument, 0, len(t.keyframes)),
	}
	for _, k := range t.keyframes {
		doc.Keyframes = append(doc.Keyframes, KeyframeDocument{
			Time:   k.Time,
			Value:  k.Value,
			Easing: k.Easing.String(),
		})
	}
	return doc
}

// TrackFromDocument reconstructs a track from its persisted form, including
// cubic-bezier parameters embedded in the easing name.
func TrackFromDocument(doc TrackDocument) (*Track, error) {
	t := NewTrack(doc.Element, doc.Property)
	for _, k := range doc.Keyframes {
		easing, err := ParseEasing(k.Easing)
		if err != nil {
			return nil, err
		}
		if err := t.Insert(Keyframe{Time: k.Time, Value: k.Value, Easing: easing}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// valueDoc is the wire shape of a Value: a type discriminator plus the
// fields of the matching variant.
type valueDoc struct {
	Type   ValueKind       `yaml:"type"`
	Value  float64         `yaml:"value,omitempty"`
	X      float64         `yaml:"x,omitempty"`
	Y      float64         `yaml:"y,omitempty"`
	Width  float64         `yaml:"width,omitempty"`
	Height float64         `yaml:"height,omitempty"`
	R      float64         `yaml:"r,omitempty"`
	G      float64         `yaml:"g,omitempty"`
	B      float64         `yaml:"b,omitempty"`
	A      float64         `yaml:"a,omitempty"`
	Text   string          `yaml:"text,omitempty"`
	Points []element.Point `yaml:"points,omitempty"`
}

// MarshalYAML emits the tagged-variant encoding.
func (v Value) MarshalYAML() (any, error) {
	doc := valueDoc{Type: v.Kind}
	switch v.Kind {
	case ValueScalar:
		doc.Value = v.Scalar
	case ValuePoint:
		doc.X, doc.Y = v.Point.X, v.Point.Y
	case ValueSize:
		doc.Width, doc.Height = v.Size.Width, v.Size.Height
	case ValueColor:
		doc.R, doc.G, doc.B, doc.A = v.Color.R, v.Color.G, v.Color.B, v.Color.A
	case ValueText:
		doc.Text = v.Text
	case ValuePoints:
		doc.Points = v.Points
	default:
		return nil, fmt.Errorf("keyframe: cannot marshal value kind %q", v.Kind)
	}
	return doc, nil
}

// UnmarshalYAML reads the tagged-variant encoding back without loss.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var doc valueDoc
	if err := node.Decode(&doc); err != nil {
		return err
	}
	switch doc.Type {
	case ValueScalar:
		*v = ScalarValue(doc.Value)
	case ValuePoint:
		*v = PointValue(doc.X, doc.Y)
	case ValueSize:
		*v = SizeValue(doc.Width, doc.Height)
	case ValueColor:
		*v = ColorValue(element.Color{R: doc.R, G: doc.G, B: doc.B, A: doc.A})
	case ValueText:
		*v = TextValue(doc.Text)
	case ValuePoints:
		*v = PointsValue(doc.Points)
	default:
		return fmt.Errorf("keyframe: unknown value type %q", doc.Type)
	}
	return nil
}

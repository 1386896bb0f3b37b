package keyframe

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateTime is returned by Insert when a keyframe already exists
	// at the given time.
	ErrDuplicateTime = errors.New("keyframe: duplicate keyframe time")
	// ErrEmptyTrack is returned when evaluating a track with no keyframes.
	ErrEmptyTrack = errors.New("keyframe: track has no keyframes")
	// ErrValueKind is returned when a keyframe's value kind differs from the
	// kind the track already holds.
	ErrValueKind = errors.New("keyframe: value kind mismatch")
)

// Keyframe pins a value at a point in time. Easing shapes the approach
// from the previous keyframe toward this one.
type Keyframe struct {
	Time   float64
	Value  Value
	Easing Easing
}

// Track holds the keyframes for one property of one element, ordered by
// strictly increasing time.
type Track struct {
	ElementID string
	Property  string
	keyframes []Keyframe
}

// NewTrack creates an empty track for the (element, property) pair.
func NewTrack(elementID, property string) *Track {
	return &Track{ElementID: elementID, Property: property}
}

// Insert adds a keyframe preserving time order. A negative time or a value
// kind differing from the track's existing kind is rejected; a duplicate
// time fails with ErrDuplicateTime.
func (t *Track) Insert(k Keyframe) error {
	if k.Time < 0 {
		return fmt.Errorf("keyframe: negative time %g", k.Time)
	}
	if len(t.keyframes) > 0 && t.keyframes[0].Value.Kind != k.Value.Kind {
		return fmt.Errorf("%w: track holds %s, got %s", ErrValueKind, t.keyframes[0].Value.Kind, k.Value.Kind)
	}
	i := sort.Search(len(t.keyframes), func(i int) bool {
		return t.keyframes[i].Time >= k.Time
	})
	if i < len(t.keyframes) && t.keyframes[i].Time == k.Time {
		return fmt.Errorf("%w: t=%g", ErrDuplicateTime, k.Time)
	}
	t.keyframes = append(t.keyframes, Keyframe{})
	copy(t.keyframes[i+1:], t.keyframes[i:])
	t.keyframes[i] = k
	return nil
}

// Remove deletes the keyframe at exactly the given time, reporting whether
// one was found.
func (t *Track) Remove(at float64) bool {
	for i, k := range t.keyframes {
		if k.Time == at {
			t.keyframes = append(t.keyframes[:i], t.keyframes[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of keyframes.
func (t *Track) Len() int { return len(t.keyframes) }

// Keyframes returns a copy of the ordered keyframe list.
func (t *Track) Keyframes() []Keyframe {
	out := make([]Keyframe, len(t.keyframes))
	for i, k := range t.keyframes {
		k.Value = k.Value.Clone()
		out[i] = k
	}
	return out
}

// Clone returns an independent copy of the track.
func (t *Track) Clone() *Track {
	return &Track{
		ElementID: t.ElementID,
		Property:  t.Property,
		keyframes: t.Keyframes(),
	}
}

// ValueAt evaluates the track at the given time. Times outside the keyframe
// range clamp to the boundary value; a time landing exactly on a keyframe
// returns that keyframe's value unmodified by easing; between keyframes the
// bracketing pair (k0, k1) is interpolated at k1's easing.
func (t *Track) ValueAt(at float64) (Value, error) {
	kfs := t.keyframes
	switch len(kfs) {
	case 0:
		return Value{}, fmt.Errorf("%w: %s/%s", ErrEmptyTrack, t.ElementID, t.Property)
	case 1:
		return kfs[0].Value.Clone(), nil
	}
	if at <= kfs[0].Time {
		return kfs[0].Value.Clone(), nil
	}
	last := kfs[len(kfs)-1]
	if at >= last.Time {
		return last.Value.Clone(), nil
	}
	i := sort.Search(len(kfs), func(i int) bool {
		return kfs[i].Time >= at
	})
	if kfs[i].Time == at {
		return kfs[i].Value.Clone(), nil
	}
	k0, k1 := kfs[i-1], kfs[i]
	p := (at - k0.Time) / (k1.Time - k0.Time)
	return Lerp(k0.Value, k1.Value, k1.Easing.Apply(p)), nil
}

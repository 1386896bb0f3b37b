// Package timeline owns the playback clock and the element/track store, and
// produces immutable element snapshots for rendering.
package timeline

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"motioncanvas/internal/element"
	"motioncanvas/internal/keyframe"
)

// State is the playback state machine: stopped, playing or paused.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// TrackKey identifies a track by element and property.
type TrackKey struct {
	ElementID string
	Property  string
}

// DefaultTickInterval is the playback clock granularity.
const DefaultTickInterval = time.Second / 60

// Controller owns the live timeline: duration, current time, play state,
// the base element list and all animation tracks. The renderer never reads
// the controller directly; it consumes snapshots from ElementsAt or an
// Evaluator.
type Controller struct {
	mu       sync.Mutex
	canvas   element.Size
	duration float64
	current  float64
	state    State
	elements []element.Element
	tracks   map[TrackKey]*keyframe.Track
	stopTick chan struct{}
	tick     time.Duration
	logger   *slog.Logger
}

// NewController creates a stopped controller with the given canvas size and
// duration in seconds. A negative duration is treated as zero.
func NewController(canvas element.Size, duration float64, logger *slog.Logger) *Controller {
	if duration < 0 {
		duration = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		canvas:   canvas,
		duration: duration,
		state:    StateStopped,
		tracks:   make(map[TrackKey]*keyframe.Track),
		tick:     DefaultTickInterval,
		logger:   logger,
	}
}

// SetElements replaces the base element list with an independent copy.
func (c *Controller) SetElements(elements []element.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elements = cloneElements(elements)
}

// AddTrack registers (or replaces) the track for its (element, property)
// pair. The controller keeps its own copy, so later edits to t do not
// bypass the lock.
func (c *Controller) AddTrack(t *keyframe.Track) {
	clone := t.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[TrackKey{ElementID: t.ElementID, Property: t.Property}] = clone
}

// Track returns a copy of the track for the pair, or nil. Edit the copy
// and AddTrack it back to change the timeline.
func (c *Controller) Track(elementID, property string) *keyframe.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.tracks[TrackKey{ElementID: elementID, Property: property}]
	if !ok {
		return nil
	}
	return tr.Clone()
}

// RemoveTrack drops the track for the pair.
func (c *Controller) RemoveTrack(elementID, property string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tracks, TrackKey{ElementID: elementID, Property: property})
}

// Canvas returns the logical canvas size.
func (c *Controller) Canvas() element.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas
}

// Duration returns the timeline duration in seconds.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// CurrentTime returns the playhead position.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasContent reports whether any elements are registered.
func (c *Controller) HasContent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.elements) > 0
}

// ElementsSnapshot returns an independent copy of the base element list.
func (c *Controller) ElementsSnapshot() []element.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneElements(c.elements)
}

// TrackDocuments returns every track in persistable form, ordered by
// element then property.
func (c *Controller) TrackDocuments() []keyframe.TrackDocument {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]TrackKey, 0, len(c.tracks))
	for k := range c.tracks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ElementID != keys[j].ElementID {
			return keys[i].ElementID < keys[j].ElementID
		}
		return keys[i].Property < keys[j].Property
	})
	out := make([]keyframe.TrackDocument, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.tracks[k].Document())
	}
	return out
}

// Play starts the clock. Playing twice is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePlaying {
		return
	}
	c.state = StatePlaying
	stop := make(chan struct{})
	c.stopTick = stop
	go c.run(stop)
}

// Pause halts the clock keeping the playhead in place.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked(StatePaused)
}

// Stop halts the clock and resets the playhead to zero.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked(StateStopped)
	c.current = 0
}

// Seek clamps t into [0, duration] and moves the playhead without changing
// the play state.
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = clamp(t, 0, c.duration)
}

// PlaybackState returns the current state and playhead together, for
// capture before an export and restore afterwards.
func (c *Controller) PlaybackState() (State, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.current
}

// RestorePlayback reinstates a previously captured state and playhead.
func (c *Controller) RestorePlayback(state State, t float64) {
	c.Seek(t)
	switch state {
	case StatePlaying:
		c.Play()
	case StateStopped:
		c.mu.Lock()
		c.haltLocked(StateStopped)
		c.mu.Unlock()
	default:
		c.Pause()
	}
}

func (c *Controller) haltLocked(next State) {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
	c.state = next
}

func (c *Controller) run(stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if !c.advance(now.Sub(last).Seconds()) {
				return
			}
			last = now
		}
	}
}

// advance moves the playhead forward while playing and auto-pauses at the
// end of the timeline. It reports whether the clock should keep running.
func (c *Controller) advance(dt float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePlaying {
		return false
	}
	c.current += dt
	if c.current >= c.duration {
		c.current = c.duration
		c.stopTick = nil
		c.state = StatePaused
		return false
	}
	return true
}

// ElementsAt resolves every tracked property at time t on copies of the
// base elements. The returned list shares nothing with the live store.
func (c *Controller) ElementsAt(t float64) []element.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return resolveElements(c.elements, c.tracks, t, c.logger)
}

// Evaluator returns a private deep copy of the element and track state.
// Exports evaluate it concurrently without ever touching the live
// controller's playhead.
func (c *Controller) Evaluator() *Evaluator {
	c.mu.Lock()
	defer c.mu.Unlock()
	tracks := make(map[TrackKey]*keyframe.Track, len(c.tracks))
	for k, tr := range c.tracks {
		tracks[k] = tr.Clone()
	}
	return &Evaluator{
		canvas:   c.canvas,
		duration: c.duration,
		elements: cloneElements(c.elements),
		tracks:   tracks,
		logger:   c.logger,
	}
}

// Evaluator is a detached snapshot of the timeline's elements and tracks.
// It is immutable after creation and safe for concurrent use.
type Evaluator struct {
	canvas   element.Size
	duration float64
	elements []element.Element
	tracks   map[TrackKey]*keyframe.Track
	logger   *slog.Logger
}

// Canvas returns the logical canvas size.
func (e *Evaluator) Canvas() element.Size { return e.canvas }

// Duration returns the timeline duration in seconds.
func (e *Evaluator) Duration() float64 { return e.duration }

// HasContent reports whether the snapshot holds any elements.
func (e *Evaluator) HasContent() bool { return len(e.elements) > 0 }

// ElementsAt resolves every tracked property at time t. Each call returns a
// fresh, independent element list.
func (e *Evaluator) ElementsAt(t float64) []element.Element {
	return resolveElements(e.elements, e.tracks, t, e.logger)
}

func resolveElements(base []element.Element, tracks map[TrackKey]*keyframe.Track, t float64, logger *slog.Logger) []element.Element {
	out := make([]element.Element, 0, len(base))
	for _, el := range base {
		el = el.Clone()
		for key, track := range tracks {
			if key.ElementID != el.ID {
				continue
			}
			v, err := track.ValueAt(t)
			if err != nil {
				logger.Debug("skipping empty track", "element", key.ElementID, "property", key.Property)
				continue
			}
			applyValue(&el, key.Property, v)
		}
		out = append(out, el)
	}
	return out
}

// applyValue overwrites one animatable property when the value kind fits;
// mismatched kinds leave the base value untouched.
func applyValue(el *element.Element, property string, v keyframe.Value) {
	switch property {
	case element.PropPosition:
		if v.Kind == keyframe.ValuePoint {
			el.Position = v.Point
		}
	case element.PropSize:
		if v.Kind == keyframe.ValueSize {
			el.Size = v.Size
		}
	case element.PropRotation:
		if v.Kind == keyframe.ValueScalar {
			el.Rotation = element.NormalizeRotation(v.Scalar)
		}
	case element.PropOpacity:
		if v.Kind == keyframe.ValueScalar {
			el.Opacity = element.Clamp01(v.Scalar)
		}
	case element.PropFill:
		if v.Kind == keyframe.ValueColor {
			el.Fill = v.Color
		}
	case element.PropText:
		if v.Kind == keyframe.ValueText {
			el.Text = v.Text
		}
	case element.PropFontSize:
		if v.Kind == keyframe.ValueScalar {
			el.FontSize = v.Scalar
		}
	case element.PropPath:
		if v.Kind == keyframe.ValuePoints {
			el.Points = v.Points
		}
	}
}

func cloneElements(elements []element.Element) []element.Element {
	out := make([]element.Element, 0, len(elements))
	for _, el := range elements {
		out = append(out, el.Clone())
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package timeline

import (
	"testing"

	"motioncanvas/internal/element"
	"motioncanvas/internal/keyframe"
	"motioncanvas/internal/logging"
)

func testController(t *testing.T, duration float64) *Controller {
	t.Helper()
	return NewController(element.Size{Width: 640, Height: 360}, duration, logging.NewNop())
}

func TestStateTransitions(t *testing.T) {
	c := testController(t, 10)
	if c.State() != StateStopped {
		t.Fatalf("initial state = %s, want stopped", c.State())
	}

	c.Play()
	if c.State() != StatePlaying {
		t.Errorf("after Play: %s, want playing", c.State())
	}

	c.Pause()
	if c.State() != StatePaused {
		t.Errorf("after Pause: %s, want paused", c.State())
	}

	c.Seek(4)
	c.Stop()
	if c.State() != StateStopped {
		t.Errorf("after Stop: %s, want stopped", c.State())
	}
	if c.CurrentTime() != 0 {
		t.Errorf("Stop left playhead at %v, want 0", c.CurrentTime())
	}
}

func TestSeekClamps(t *testing.T) {
	c := testController(t, 5)
	c.Seek(-2)
	if c.CurrentTime() != 0 {
		t.Errorf("Seek(-2): playhead %v, want 0", c.CurrentTime())
	}
	c.Seek(100)
	if c.CurrentTime() != 5 {
		t.Errorf("Seek(100): playhead %v, want 5", c.CurrentTime())
	}
}

func TestAdvanceAutoPausesAtEnd(t *testing.T) {
	c := testController(t, 1)
	c.Play()
	defer c.Stop()

	// Drive the clock directly; the ticker goroutine is irrelevant here.
	if !c.advance(0.5) {
		t.Fatal("advance mid-timeline reported the clock should stop")
	}
	if c.advance(2) {
		t.Error("advance past the end should stop the clock")
	}
	if c.State() != StatePaused {
		t.Errorf("state at end = %s, want paused", c.State())
	}
	if c.CurrentTime() != 1 {
		t.Errorf("playhead at end = %v, want 1", c.CurrentTime())
	}
}

func TestPlaybackStateCaptureRestore(t *testing.T) {
	c := testController(t, 10)
	c.Play()
	c.Seek(3)

	state, at := c.PlaybackState()
	c.Pause()

	c.RestorePlayback(state, at)
	defer c.Stop()
	if c.State() != StatePlaying {
		t.Errorf("restored state = %s, want playing", c.State())
	}
	if got := c.CurrentTime(); got < 3 {
		t.Errorf("restored playhead = %v, want at least 3", got)
	}
}

func TestElementsAtAppliesTracks(t *testing.T) {
	c := testController(t, 10)
	c.SetElements([]element.Element{{
		ID:       "box",
		Kind:     element.KindRectangle,
		Position: element.Point{X: 0, Y: 0},
		Size:     element.Size{Width: 10, Height: 10},
		Opacity:  1,
	}})

	track := keyframe.NewTrack("box", element.PropPosition)
	track.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.PointValue(0, 0), Easing: keyframe.Linear})
	track.Insert(keyframe.Keyframe{Time: 2, Value: keyframe.PointValue(100, 0), Easing: keyframe.Linear})
	c.AddTrack(track)

	els := c.ElementsAt(1)
	if len(els) != 1 {
		t.Fatalf("got %d elements, want 1", len(els))
	}
	if els[0].Position.X != 50 {
		t.Errorf("position at t=1: %v, want 50", els[0].Position.X)
	}

	// The snapshot must not alias the live store.
	els[0].Position.X = -1
	again := c.ElementsAt(1)
	if again[0].Position.X != 50 {
		t.Error("mutating a snapshot leaked into the controller")
	}
}

func TestAddTrackDetachesFromCaller(t *testing.T) {
	c := testController(t, 10)
	c.SetElements([]element.Element{{ID: "box", Kind: element.KindRectangle, Opacity: 1}})

	track := keyframe.NewTrack("box", element.PropOpacity)
	track.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(1), Easing: keyframe.Linear})
	c.AddTrack(track)

	// Later edits to the caller's track must not reach the stored copy.
	track.Insert(keyframe.Keyframe{Time: 5, Value: keyframe.ScalarValue(0), Easing: keyframe.Linear})
	if els := c.ElementsAt(5); els[0].Opacity != 1 {
		t.Errorf("opacity at t=5: %v, want 1 (caller edit reached the controller)", els[0].Opacity)
	}

	got := c.Track("box", element.PropOpacity)
	if got == nil || got.Len() != 1 {
		t.Fatalf("stored track = %v, want one keyframe", got)
	}
	got.Insert(keyframe.Keyframe{Time: 3, Value: keyframe.ScalarValue(0.5), Easing: keyframe.Linear})
	if again := c.Track("box", element.PropOpacity); again.Len() != 1 {
		t.Error("mutating an accessor copy reached the controller")
	}
}

func TestApplyValueGuardsKindAndRange(t *testing.T) {
	c := testController(t, 10)
	c.SetElements([]element.Element{{ID: "e", Kind: element.KindRectangle, Opacity: 0.5}})

	opacity := keyframe.NewTrack("e", element.PropOpacity)
	opacity.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(-2), Easing: keyframe.Linear})
	opacity.Insert(keyframe.Keyframe{Time: 1, Value: keyframe.ScalarValue(3), Easing: keyframe.Linear})
	c.AddTrack(opacity)

	rotation := keyframe.NewTrack("e", element.PropRotation)
	rotation.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(-90), Easing: keyframe.Linear})
	c.AddTrack(rotation)

	els := c.ElementsAt(0)
	if els[0].Opacity != 0 {
		t.Errorf("opacity below range: %v, want clamped 0", els[0].Opacity)
	}
	if els[0].Rotation != 270 {
		t.Errorf("rotation -90 normalized to %v, want 270", els[0].Rotation)
	}

	els = c.ElementsAt(1)
	if els[0].Opacity != 1 {
		t.Errorf("opacity above range: %v, want clamped 1", els[0].Opacity)
	}

	// A track whose value kind does not match the property is ignored.
	bogus := keyframe.NewTrack("e", element.PropPosition)
	bogus.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(5), Easing: keyframe.Linear})
	c.AddTrack(bogus)
	els = c.ElementsAt(0)
	if els[0].Position.X != 0 {
		t.Errorf("scalar applied to position: %v", els[0].Position.X)
	}
}

func TestEvaluatorIsDetached(t *testing.T) {
	c := testController(t, 10)
	c.SetElements([]element.Element{{ID: "e", Kind: element.KindRectangle, Opacity: 1}})

	track := keyframe.NewTrack("e", element.PropOpacity)
	track.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(1), Easing: keyframe.Linear})
	c.AddTrack(track)

	eval := c.Evaluator()

	// Mutating the live controller afterwards must not affect the snapshot.
	c.SetElements(nil)
	c.RemoveTrack("e", element.PropOpacity)

	if !eval.HasContent() {
		t.Fatal("evaluator lost its elements after controller mutation")
	}
	els := eval.ElementsAt(0)
	if len(els) != 1 || els[0].Opacity != 1 {
		t.Errorf("evaluator snapshot corrupted: %+v", els)
	}
}

func TestTrackDocumentsAreOrdered(t *testing.T) {
	c := testController(t, 10)
	pairs := [][2]string{{"b", "size"}, {"a", "position"}, {"b", "opacity"}, {"a", "fill"}}
	for _, p := range pairs {
		track := keyframe.NewTrack(p[0], p[1])
		track.Insert(keyframe.Keyframe{Time: 0, Value: keyframe.ScalarValue(0), Easing: keyframe.Linear})
		c.AddTrack(track)
	}

	docs := c.TrackDocuments()
	want := [][2]string{{"a", "fill"}, {"a", "position"}, {"b", "opacity"}, {"b", "size"}}
	if len(docs) != len(want) {
		t.Fatalf("got %d documents, want %d", len(docs), len(want))
	}
	for i, doc := range docs {
		if doc.Element != want[i][0] || doc.Property != want[i][1] {
			t.Errorf("document %d = %s/%s, want %s/%s", i, doc.Element, doc.Property, want[i][0], want[i][1])
		}
	}
}

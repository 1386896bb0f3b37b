package keyframe

import (
	"math"
	"testing"
)

func TestApplyClampsAndPinsEndpoints(t *testing.T) {
	kinds := []EasingKind{
		EasingLinear, EasingEaseIn, EasingEaseOut, EasingEaseInOut,
		EasingBounce, EasingElastic, EasingSpring, EasingSine,
	}
	for _, kind := range kinds {
		e := Easing{Kind: kind}
		if got := e.Apply(-0.5); got != 0 {
			t.Errorf("%s: Apply(-0.5) = %v, want 0", kind, got)
		}
		if got := e.Apply(0); got != 0 {
			t.Errorf("%s: Apply(0) = %v, want 0", kind, got)
		}
		if got := e.Apply(1); got != 1 {
			t.Errorf("%s: Apply(1) = %v, want 1", kind, got)
		}
		if got := e.Apply(1.5); got != 1 {
			t.Errorf("%s: Apply(1.5) = %v, want 1", kind, got)
		}
	}
}

func TestApplyEaseInStartsSlow(t *testing.T) {
	e := Easing{Kind: EasingEaseIn}
	if got := e.Apply(0.5); got >= 0.5 {
		t.Errorf("ease-in at 0.5 = %v, want below 0.5", got)
	}
	e = Easing{Kind: EasingEaseOut}
	if got := e.Apply(0.5); got <= 0.5 {
		t.Errorf("ease-out at 0.5 = %v, want above 0.5", got)
	}
}

func TestCubicBezierIdentityCurve(t *testing.T) {
	// Control points on the diagonal give y(x) = x.
	e := CubicBezier(0.3, 0.3, 0.7, 0.7)
	for p := 0.05; p < 1; p += 0.05 {
		got := e.Apply(p)
		if math.Abs(got-p) > 1e-3 {
			t.Errorf("Apply(%v) = %v, want ~%v", p, got, p)
		}
	}
}

func TestCubicBezierMonotonicEase(t *testing.T) {
	// The CSS "ease" curve. The output must be monotonic and within [0,1].
	e := CubicBezier(0.25, 0.1, 0.25, 1)
	prev := 0.0
	for p := 0.01; p < 1; p += 0.01 {
		got := e.Apply(p)
		if got < prev-1e-9 {
			t.Fatalf("Apply(%v) = %v dropped below previous %v", p, got, prev)
		}
		if got < 0 || got > 1 {
			t.Fatalf("Apply(%v) = %v outside [0,1]", p, got)
		}
		prev = got
	}
}

func TestParseEasingRoundTrip(t *testing.T) {
	tests := []Easing{
		Linear,
		{Kind: EasingEaseInOut},
		{Kind: EasingBounce},
		{Kind: EasingSpring},
		CubicBezier(0.25, 0.1, 0.25, 1),
		CubicBezier(0.42, 0, 0.58, 1),
	}
	for _, want := range tests {
		got, err := ParseEasing(want.String())
		if err != nil {
			t.Fatalf("ParseEasing(%q): %v", want.String(), err)
		}
		if got != want {
			t.Errorf("round trip %q: got %+v, want %+v", want.String(), got, want)
		}
	}
}

func TestParseEasingErrors(t *testing.T) {
	for _, s := range []string{"wobble", "cubic-bezier(1,2,3)", "cubic-bezier(a,b,c,d)"} {
		if _, err := ParseEasing(s); err == nil {
			t.Errorf("ParseEasing(%q) succeeded, want error", s)
		}
	}
}

func TestParseEasingEmptyIsLinear(t *testing.T) {
	got, err := ParseEasing("")
	if err != nil {
		t.Fatalf("ParseEasing(\"\"): %v", err)
	}
	if got != Linear {
		t.Errorf("ParseEasing(\"\") = %+v, want Linear", got)
	}
}

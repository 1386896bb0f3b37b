package keyframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/ease"
)

// EasingKind names a progress-remapping curve.
type EasingKind string

const (
	EasingLinear      EasingKind = "linear"
	EasingEaseIn      EasingKind = "ease-in"
	EasingEaseOut     EasingKind = "ease-out"
	EasingEaseInOut   EasingKind = "ease-in-out"
	EasingBounce      EasingKind = "bounce"
	EasingElastic     EasingKind = "elastic"
	EasingSpring      EasingKind = "spring"
	EasingSine        EasingKind = "sine"
	EasingCubicBezier EasingKind = "cubic-bezier"
)

// bezierTolerance is the numeric tolerance for solving the bezier x(t)=p
// equation.
const bezierTolerance = 1e-4

// Easing remaps normalized progress between two keyframes. The control
// points are only meaningful for EasingCubicBezier.
type Easing struct {
	Kind           EasingKind
	X1, Y1, X2, Y2 float64
}

// Linear is the zero-value easing.
var Linear = Easing{Kind: EasingLinear}

// CubicBezier builds an easing from the curve through (0,0), (x1,y1),
// (x2,y2), (1,1).
func CubicBezier(x1, y1, x2, y2 float64) Easing {
	return Easing{Kind: EasingCubicBezier, X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Apply remaps progress p in [0,1]. Inputs outside the unit range are
// clamped before easing.
func (e Easing) Apply(p float64) float64 {
	if p <= 0 {
		return 0
	}
	if p >= 1 {
		return 1
	}
	switch e.Kind {
	case EasingEaseIn:
		return ease.InCubic(p)
	case EasingEaseOut:
		return ease.OutCubic(p)
	case EasingEaseInOut:
		return ease.InOutCubic(p)
	case EasingBounce:
		return ease.OutBounce(p)
	case EasingElastic:
		return ease.OutElastic(p)
	case EasingSine:
		return ease.InOutSine(p)
	case EasingSpring:
		return spring(p)
	case EasingCubicBezier:
		return cubicBezierY(e.X1, e.Y1, e.X2, e.Y2, p)
	default:
		return p
	}
}

// String returns the persisted easing name, reconstructable by ParseEasing.
func (e Easing) String() string {
	if e.Kind == EasingCubicBezier {
		return fmt.Sprintf("cubic-bezier(%g,%g,%g,%g)", e.X1, e.Y1, e.X2, e.Y2)
	}
	if e.Kind == "" {
		return string(EasingLinear)
	}
	return string(e.Kind)
}

// ParseEasing reconstructs an easing from its persisted name, including the
// parenthesized cubic-bezier parameter form.
func ParseEasing(s string) (Easing, error) {
	s = strings.TrimSpace(s)
	switch EasingKind(s) {
	case EasingLinear, "":
		return Linear, nil
	case EasingEaseIn, EasingEaseOut, EasingEaseInOut,
		EasingBounce, EasingElastic, EasingSpring, EasingSine:
		return Easing{Kind: EasingKind(s)}, nil
	}
	if strings.HasPrefix(s, string(EasingCubicBezier)+"(") && strings.HasSuffix(s, ")") {
		inner := s[len(EasingCubicBezier)+1 : len(s)-1]
		parts := strings.Split(inner, ",")
		if len(parts) != 4 {
			return Easing{}, fmt.Errorf("keyframe: cubic-bezier wants 4 parameters, got %d", len(parts))
		}
		var params [4]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return Easing{}, fmt.Errorf("keyframe: bad cubic-bezier parameter %q: %w", part, err)
			}
			params[i] = v
		}
		return CubicBezier(params[0], params[1], params[2], params[3]), nil
	}
	return Easing{}, fmt.Errorf("keyframe: unknown easing %q", s)
}

// spring approximates a damped spring settling at 1.
func spring(t float64) float64 {
	return 1 - math.Cos(t*4.5*math.Pi)*math.Exp(-t*6)
}

// cubicBezierY evaluates the y coordinate of the curve through (0,0),
// (x1,y1), (x2,y2), (1,1) at the parameter where x equals p. The parameter
// is found by Newton-Raphson with a bisection fallback.
func cubicBezierY(x1, y1, x2, y2, p float64) float64 {
	u := p
	for i := 0; i < 8; i++ {
		x := bezierAxis(x1, x2, u) - p
		if math.Abs(x) < bezierTolerance {
			return bezierAxis(y1, y2, u)
		}
		d := bezierAxisDerivative(x1, x2, u)
		if math.Abs(d) < 1e-6 {
			break
		}
		u -= x / d
	}

	// Newton did not converge; bisect on [0,1], where x(u) is monotonic for
	// valid control points.
	lo, hi := 0.0, 1.0
	u = p
	for hi-lo > bezierTolerance {
		if bezierAxis(x1, x2, u) < p {
			lo = u
		} else {
			hi = u
		}
		u = (lo + hi) / 2
	}
	return bezierAxis(y1, y2, u)
}

// bezierAxis evaluates one axis of the cubic with implicit endpoints 0 and 1.
func bezierAxis(c1, c2, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*c1 + 3*inv*t*t*c2 + t*t*t
}

func bezierAxisDerivative(c1, c2, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*c1 + 6*inv*t*(c2-c1) + 3*t*t*(1-c2)
}

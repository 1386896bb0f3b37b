package export

import "time"

// ProgressFunc receives overall progress in [0,1]. Invocations are ordered;
// exporters call it from a single goroutine.
type ProgressFunc func(float64)

// Throttle defaults: observers see an update at most when progress advanced
// one percent or half a second has passed.
const (
	progressMinDelta    = 0.01
	progressMinInterval = 500 * time.Millisecond
)

// Throttle wraps fn so intermediate updates are dropped unless progress
// advanced by at least minDelta or minInterval of wall time elapsed since
// the last delivered update. The terminal 1.0 update always passes. A nil
// fn yields a no-op.
func Throttle(fn ProgressFunc, minDelta float64, minInterval time.Duration) ProgressFunc {
	if fn == nil {
		return func(float64) {}
	}
	last := -1.0
	var lastAt time.Time
	return func(p float64) {
		now := time.Now()
		if p < 1 && last >= 0 && p-last < minDelta && now.Sub(lastAt) < minInterval {
			return
		}
		last = p
		lastAt = now
		fn(p)
	}
}

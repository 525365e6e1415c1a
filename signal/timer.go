package signal

import (
	"strings"
	"time"

	"github.com/Comcast/morphs/core"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Timer makes a progress signal that runs from 0 to 1 (or 1 to 0
// when reversed) over the given duration, driven by the scheduler's
// frames.
//
// When the timer finishes, it stops its ticker and calls done (if
// not nil) exactly once.  Disposing all subscriptions before then
// cancels the timer, and done is never called.
func Timer(name string, sched *Scheduler, d time.Duration, reversed bool, done func()) *Signal {
	return New(name, func(emit func(core.Value)) func() {
		begin, end := float32(0), float32(1)
		if reversed {
			begin, end = 1, 0
		}
		tw := gween.New(begin, end, float32(d.Seconds()), ease.Linear)
		emit(core.NumberValue(float64(begin)))

		var (
			t        Disposer
			finished bool
		)
		t = sched.AddTicker(func(dt time.Duration) {
			if finished {
				return
			}
			v, fin := tw.Update(float32(dt.Seconds()))
			if fin {
				v = end
			}
			emit(core.NumberValue(float64(v)))
			if fin {
				finished = true
				t.Dispose()
				if done != nil {
					done()
				}
			}
		})
		return func() {
			t.Dispose()
		}
	})
}

// Easings maps lower-case easing names to gween easing functions.
var Easings = map[string]ease.TweenFunc{
	"linear":      ease.Linear,
	"inquad":      ease.InQuad,
	"outquad":     ease.OutQuad,
	"inoutquad":   ease.InOutQuad,
	"incubic":     ease.InCubic,
	"outcubic":    ease.OutCubic,
	"inoutcubic":  ease.InOutCubic,
	"insine":      ease.InSine,
	"outsine":     ease.OutSine,
	"inoutsine":   ease.InOutSine,
	"inexpo":      ease.InExpo,
	"outexpo":     ease.OutExpo,
	"inoutexpo":   ease.InOutExpo,
	"inbounce":    ease.InBounce,
	"outbounce":   ease.OutBounce,
	"inoutbounce": ease.InOutBounce,
	"outelastic":  ease.OutElastic,
}

// Easing returns a function from [0,1] to [0,1] for the named
// easing.  Names are case-insensitive and ignore "-" and "_", so
// "in-out-quad" and "InOutQuad" are the same.  An empty name gives
// nil (no easing), and an unknown name is false.
func Easing(name string) (func(float64) float64, bool) {
	if name == "" {
		return nil, true
	}
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(name))
	fn, have := Easings[key]
	if !have {
		return nil, false
	}
	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if 1 <= t {
			return 1
		}
		return float64(fn(float32(t), 0, 1, 1))
	}, true
}

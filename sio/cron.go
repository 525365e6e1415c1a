package sio

import (
	"context"
	"fmt"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/signal"

	"github.com/gorhill/cronexpr"
)

// DefaultCronHold is how long a "cron" signal stays true after it
// fires.
var DefaultCronHold = time.Second

// CronProvider makes "cron" signals.  The target is a cron
// expression.  The signal is false until the expression fires, then
// true for the hold duration (parameter "hold"), then false again.
//
// Useful as a trigger for scheduled transitions.
type CronProvider struct {
	Hold time.Duration

	// Now is for testing.
	Now func() time.Time
}

func (p *CronProvider) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *CronProvider) Make(env *signal.Env, spec *core.SignalSpec) (*signal.Signal, error) {
	expr, err := cronexpr.Parse(spec.Target)
	if err != nil {
		return nil, &core.BadMorph{Reason: fmt.Sprintf(`cron signal "%s": %s`, spec.Name, err)}
	}
	hold := p.Hold
	if hold <= 0 {
		hold = DefaultCronHold
	}
	if s := spec.Param("hold", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, &core.BadMorph{Reason: fmt.Sprintf(`cron signal "%s" has bad hold "%s"`, spec.Name, s)}
		}
		hold = d
	}

	return signal.New(spec.Name, func(emit func(core.Value)) func() {
		emit(core.BoolValue(false))
		ctx, cancel := context.WithCancel(env.Ctx)
		go func() {
			post := func(b bool) {
				env.Scheduler.Post(func() {
					emit(core.BoolValue(b))
				})
			}
			for {
				next := expr.Next(p.now())
				if next.IsZero() {
					return
				}
				t := time.NewTimer(next.Sub(p.now()))
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
				post(true)
				t = time.NewTimer(hold)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
				post(false)
			}
		}()
		return cancel
	}), nil
}

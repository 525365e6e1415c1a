package signal

import (
	"sync"
	"time"
)

// MaxSettle bounds the number of end-of-frame/resolution rounds in
// one Tick.  Work queued beyond that waits for the next frame.
var MaxSettle = 8

// Scheduler is the frame loop.
//
// Each Tick runs these phases in order:
//
//  1. work Posted from other goroutines
//  2. tickers (timers, polling providers)
//  3. end-of-frame callbacks (condition evaluation)
//  4. resolution callbacks (queued activations and deactivations)
//
// Phases 3 and 4 repeat while either queued more work, up to
// MaxSettle times.
type Scheduler struct {
	sync.Mutex
	posted []func()

	tickers    []*ticker
	endOfFrame []func()
	resolution []func()
	frame      uint64
	clock      time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

type ticker struct {
	fn       func(dt time.Duration)
	disposed bool
}

func (t *ticker) Dispose() {
	t.disposed = true
}

// Post queues fn to run at the start of the next Tick.  Safe for
// concurrent use.
func (s *Scheduler) Post(fn func()) {
	s.Lock()
	s.posted = append(s.posted, fn)
	s.Unlock()
}

// AddTicker registers fn to run once per frame with the frame's
// duration.
func (s *Scheduler) AddTicker(fn func(dt time.Duration)) Disposer {
	t := &ticker{fn: fn}
	s.tickers = append(s.tickers, t)
	return t
}

// AtEndOfFrame queues fn for the end-of-frame phase.
func (s *Scheduler) AtEndOfFrame(fn func()) {
	s.endOfFrame = append(s.endOfFrame, fn)
}

// AtResolution queues fn for the resolution phase.
func (s *Scheduler) AtResolution(fn func()) {
	s.resolution = append(s.resolution, fn)
}

// Frame returns the number of Ticks so far.
func (s *Scheduler) Frame() uint64 {
	return s.frame
}

// Clock returns the sum of the durations given to Tick.
func (s *Scheduler) Clock() time.Duration {
	return s.clock
}

// Tickers returns the number of live tickers.
func (s *Scheduler) Tickers() int {
	n := 0
	for _, t := range s.tickers {
		if !t.disposed {
			n++
		}
	}
	return n
}

// Tick runs one frame.
func (s *Scheduler) Tick(dt time.Duration) {
	s.frame++
	s.clock += dt

	s.Lock()
	posted := s.posted
	s.posted = nil
	s.Unlock()
	for _, fn := range posted {
		fn()
	}

	tickers := make([]*ticker, 0, len(s.tickers))
	for _, t := range s.tickers {
		if !t.disposed {
			tickers = append(tickers, t)
		}
	}
	for _, t := range tickers {
		if !t.disposed {
			t.fn(dt)
		}
	}
	live := s.tickers[:0]
	for _, t := range s.tickers {
		if !t.disposed {
			live = append(live, t)
		}
	}
	s.tickers = live

	s.Settle()
}

// Settle runs the end-of-frame and resolution phases.
func (s *Scheduler) Settle() {
	for i := 0; i < MaxSettle; i++ {
		if len(s.endOfFrame) == 0 && len(s.resolution) == 0 {
			return
		}
		fns := s.endOfFrame
		s.endOfFrame = nil
		for _, fn := range fns {
			fn()
		}
		fns = s.resolution
		s.resolution = nil
		for _, fn := range fns {
			fn()
		}
	}
}

// Package signal provides named reactive values.
//
// A Signal is a hot, replay-one stream: the most recently emitted
// Value is delivered immediately to each new subscriber.  A Signal
// starts its Producer when it gets its first subscriber and stops
// the Producer when the last subscription is disposed.  New creates
// a keep-alive subscription so that a signal is hot from birth and
// stays hot until Closed.
//
// Nothing in this package is safe for concurrent use except
// Scheduler.Post.  Everything else happens on the goroutine that
// calls Scheduler.Tick.
package signal

import (
	"github.com/Comcast/morphs/core"
)

// Producer starts a source of values.  It returns a function that
// stops the source.
//
// A Producer can call emit synchronously.
type Producer func(emit func(core.Value)) (stop func())

// Signal is a named reactive value.
type Signal struct {
	Name string

	producer  Producer
	stop      func()
	last      core.Value
	has       bool
	subs      []*Subscription
	keepalive *Subscription
	closed    bool
}

// New makes a hot signal.  The producer can be nil for a signal
// that only gets values via Emit.
func New(name string, p Producer) *Signal {
	s := &Signal{
		Name:     name,
		producer: p,
	}
	s.keepalive = s.Subscribe(func(core.Value) {})
	return s
}

// Constant makes a signal that has one value forever.
func Constant(name string, v core.Value) *Signal {
	s := New(name, nil)
	s.Emit(v)
	return s
}

// Subscribe registers fn, which is called with the last value (if
// any) right away and then with each subsequent value.
func (s *Signal) Subscribe(fn func(core.Value)) *Subscription {
	sub := &Subscription{
		s:  s,
		fn: fn,
	}
	if s.closed {
		sub.disposed = true
		return sub
	}
	replay, had := s.last, s.has
	s.subs = append(s.subs, sub)
	if len(s.subs) == 1 && s.producer != nil && s.stop == nil {
		s.stop = s.producer(s.Emit)
	}
	if had && !sub.disposed {
		fn(replay)
	}
	return sub
}

// Emit publishes a value to all subscribers.
func (s *Signal) Emit(v core.Value) {
	if s.closed {
		return
	}
	s.last = v
	s.has = true
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		if !sub.disposed {
			sub.fn(v)
		}
	}
}

// EmitChanged emits only if the value differs from the last value.
func (s *Signal) EmitChanged(v core.Value) {
	if s.has && s.last.Equal(v) {
		return
	}
	s.Emit(v)
}

// Last returns the most recent value.
func (s *Signal) Last() (core.Value, bool) {
	return s.last, s.has
}

// Refs returns the number of subscriptions, including the
// keep-alive.
func (s *Signal) Refs() int {
	return len(s.subs)
}

// Running reports whether the producer is running.
func (s *Signal) Running() bool {
	return s.stop != nil
}

// Close disposes all subscriptions (so the producer stops) and
// makes the signal inert.
func (s *Signal) Close() {
	if s.closed {
		return
	}
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	for _, sub := range subs {
		sub.Dispose()
	}
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Signal) Closed() bool {
	return s.closed
}

func (s *Signal) remove(sub *Subscription) {
	for i, x := range s.subs {
		if x == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	if len(s.subs) == 0 && s.stop != nil {
		stop := s.stop
		s.stop = nil
		stop()
	}
}

// Subscription is one subscriber's interest in a Signal.
type Subscription struct {
	s        *Signal
	fn       func(core.Value)
	disposed bool
}

// Dispose unsubscribes.  Disposing twice is harmless.
func (sub *Subscription) Dispose() {
	if sub.disposed {
		return
	}
	sub.disposed = true
	sub.s.remove(sub)
}

// Disposed reports whether Dispose has been called.
func (sub *Subscription) Disposed() bool {
	return sub.disposed
}

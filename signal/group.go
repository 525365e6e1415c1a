package signal

import "github.com/Comcast/morphs/core"

// Disposer is anything that can be cancelled.
type Disposer interface {
	Dispose()
}

// DisposeFunc adapts a function to a Disposer.
type DisposeFunc func()

func (f DisposeFunc) Dispose() {
	f()
}

// Group collects Disposers so that one Dispose cancels them all.
//
// This is the only cancellation primitive.  Groups nest.
type Group struct {
	items    []Disposer
	disposed bool
}

func NewGroup() *Group {
	return &Group{}
}

// Add adds Disposers.  Adding to a disposed group disposes them
// right away.
func (g *Group) Add(ds ...Disposer) {
	if g.disposed {
		for _, d := range ds {
			d.Dispose()
		}
		return
	}
	if 64 < len(g.items) {
		g.prune()
	}
	g.items = append(g.items, ds...)
}

// Group makes a child group.
func (g *Group) Group() *Group {
	child := NewGroup()
	g.Add(child)
	return child
}

// Subscribe subscribes to s and adds the subscription to the group.
func (g *Group) Subscribe(s *Signal, fn func(core.Value)) *Subscription {
	sub := s.Subscribe(fn)
	g.Add(sub)
	return sub
}

// Dispose disposes everything in reverse order of addition.
func (g *Group) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	items := g.items
	g.items = nil
	for i := len(items) - 1; 0 <= i; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (g *Group) Disposed() bool {
	return g.disposed
}

// Len counts the live subscriptions in the group and its children.
func (g *Group) Len() int {
	n := 0
	for _, d := range g.items {
		switch vv := d.(type) {
		case *Subscription:
			if !vv.Disposed() {
				n++
			}
		case *Group:
			n += vv.Len()
		}
	}
	return n
}

func (g *Group) prune() {
	acc := g.items[:0]
	for _, d := range g.items {
		switch vv := d.(type) {
		case *Subscription:
			if vv.Disposed() {
				continue
			}
		case *Group:
			if vv.Disposed() {
				continue
			}
		}
		acc = append(acc, d)
	}
	for i := len(acc); i < len(g.items); i++ {
		g.items[i] = nil
	}
	g.items = acc
}

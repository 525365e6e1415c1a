package signal

import (
	"context"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/util"
)

// Env is what a Provider gets to work with when it makes a signal.
type Env struct {
	Ctx       context.Context
	Scheduler *Scheduler
	Evaluator core.Evaluator

	// Object finds an external object by name.
	Object func(name string) (core.PropertyAccessor, bool)

	// Spec returns the current visualization spec.  Only set for
	// signals that are local to a visualization.
	Spec func() core.VisSpec

	// Lookup finds other signals by name.
	Lookup func(name string) (*Signal, bool)
}

// Provider makes signals for a source capability.
type Provider interface {
	Make(env *Env, spec *core.SignalSpec) (*Signal, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(env *Env, spec *core.SignalSpec) (*Signal, error)

func (f ProviderFunc) Make(env *Env, spec *core.SignalSpec) (*Signal, error) {
	return f(env, spec)
}

// Manager owns the global signal table and the provider registry.
//
// Global signals are built when morphs are declared and live until
// Reset.  Local signals (expressions and "vis" sources) are built by
// Build for each visualization instance and are owned by whoever
// asked for them.
type Manager struct {
	Ctx       context.Context
	Scheduler *Scheduler
	Evaluator core.Evaluator

	providers map[string]Provider
	objects   map[string]core.PropertyAccessor
	global    map[string]*Signal
	order     []string
}

// NewManager makes a Manager with the built-in providers: "input",
// "constant", "object", and "vis".
func NewManager(sched *Scheduler, eval core.Evaluator) *Manager {
	m := &Manager{
		Ctx:       context.Background(),
		Scheduler: sched,
		Evaluator: eval,
		providers: make(map[string]Provider),
		objects:   make(map[string]core.PropertyAccessor),
		global:    make(map[string]*Signal),
	}
	m.Register("input", ProviderFunc(inputProvider))
	m.Register("constant", ProviderFunc(constantProvider))
	m.Register("object", ProviderFunc(objectProvider))
	m.Register("vis", ProviderFunc(visProvider))
	return m
}

// Register adds (or replaces) the provider for a source.
func (m *Manager) Register(source string, p Provider) {
	m.providers[source] = p
}

// AddObject makes an external object available to "object"
// signals.
func (m *Manager) AddObject(o core.PropertyAccessor) {
	m.objects[o.ObjectName()] = o
}

// RemoveObject forgets an object.
func (m *Manager) RemoveObject(name string) {
	delete(m.objects, name)
}

func (m *Manager) object(name string) (core.PropertyAccessor, bool) {
	o, have := m.objects[name]
	return o, have
}

// Env returns an Env for global signals.
func (m *Manager) Env() *Env {
	return &Env{
		Ctx:       m.Ctx,
		Scheduler: m.Scheduler,
		Evaluator: m.Evaluator,
		Object:    m.object,
		Lookup:    m.Global,
	}
}

// Build makes a signal from a declaration.
func (m *Manager) Build(env *Env, spec *core.SignalSpec) (*Signal, error) {
	if spec.Expression != "" {
		lookup := env.Lookup
		if lookup == nil {
			lookup = m.Global
		}
		return Expression(env.Ctx, spec, env.Evaluator, lookup)
	}
	p, have := m.providers[spec.Source]
	if !have {
		return nil, &core.UnknownSource{
			Signal: spec.Name,
			Source: spec.Source,
		}
	}
	return p.Make(env, spec)
}

// Declare builds the global signals that a morph declares.
//
// A global signal that already exists (declared by another morph,
// say) is shared.  If any signal can't be built, the ones that were
// built for this morph are closed and the error is returned.
func (m *Manager) Declare(morph *core.Morph) error {
	var built []string
	env := m.Env()
	for _, spec := range morph.Signals {
		if spec.Local() {
			continue
		}
		if _, have := m.global[spec.Name]; have {
			continue
		}
		s, err := m.Build(env, spec)
		if err != nil {
			for _, name := range built {
				m.global[name].Close()
				delete(m.global, name)
			}
			m.order = m.order[:len(m.order)-len(built)]
			return err
		}
		m.global[spec.Name] = s
		m.order = append(m.order, spec.Name)
		built = append(built, spec.Name)
	}
	return nil
}

// Global finds a global signal.
func (m *Manager) Global(name string) (*Signal, bool) {
	s, have := m.global[name]
	return s, have
}

// Names returns the global signal names in order of declaration.
func (m *Manager) Names() []string {
	acc := make([]string, len(m.order))
	copy(acc, m.order)
	return acc
}

// Input returns the named global signal, creating an input signal
// if there isn't one.
func (m *Manager) Input(name string) *Signal {
	if s, have := m.global[name]; have {
		return s
	}
	s := New(name, nil)
	m.global[name] = s
	m.order = append(m.order, name)
	return s
}

// Emit sends a value to a global signal.  Call on the frame
// goroutine.
func (m *Manager) Emit(name string, v core.Value) {
	m.Input(name).Emit(v)
}

// Post converts x and arranges for it to be emitted on the named
// global signal at the start of the next frame.  Safe for concurrent
// use.
func (m *Manager) Post(name string, x interface{}) error {
	v, err := core.Of(x)
	if err != nil {
		return err
	}
	m.Scheduler.Post(func() {
		m.Emit(name, v)
	})
	return nil
}

// Reset closes all global signals and clears the table.
//
// Not safe to interleave with in-flight transitions: reset the
// visualization instances first.
func (m *Manager) Reset() {
	for i := len(m.order) - 1; 0 <= i; i-- {
		if s, have := m.global[m.order[i]]; have {
			s.Close()
		}
	}
	m.global = make(map[string]*Signal)
	m.order = nil
}

func inputProvider(env *Env, spec *core.SignalSpec) (*Signal, error) {
	s := New(spec.Name, nil)
	if spec.Value != nil {
		v, err := core.Of(spec.Value)
		if err != nil {
			return nil, err
		}
		s.Emit(v)
	}
	return s, nil
}

func constantProvider(env *Env, spec *core.SignalSpec) (*Signal, error) {
	v, err := core.Of(spec.Value)
	if err != nil {
		return nil, err
	}
	return Constant(spec.Name, v), nil
}

// Poll makes a signal that calls get every frame and emits when the
// value changes.
func Poll(name string, sched *Scheduler, get func() (core.Value, error)) *Signal {
	return New(name, func(emit func(core.Value)) func() {
		var (
			last    core.Value
			has     bool
			warned  bool
			current = func() {
				v, err := get()
				if err != nil {
					if !warned {
						util.Logf("signal %s: %s", name, err)
						warned = true
					}
					return
				}
				warned = false
				if has && last.Equal(v) {
					return
				}
				last, has = v, true
				emit(v)
			}
		)
		current()
		t := sched.AddTicker(func(time.Duration) {
			current()
		})
		return t.Dispose
	})
}

// objectProvider observes a property of an external object.  The
// object is named by Target, and the property by the "property"
// parameter.  Without a property, the signal's value is the object
// itself.
func objectProvider(env *Env, spec *core.SignalSpec) (*Signal, error) {
	if spec.Target == "" {
		return nil, &core.BadMorph{Reason: `object signal "` + spec.Name + `" has no target`}
	}
	prop := spec.Param("property", "")
	return Poll(spec.Name, env.Scheduler, func() (core.Value, error) {
		o, have := env.Object(spec.Target)
		if !have {
			return core.Value{}, nil
		}
		if prop == "" {
			return core.ObjectValue(o), nil
		}
		return o.Property(prop)
	}), nil
}

// visProvider observes a property (Target is a path) of the
// visualization's own spec.
func visProvider(env *Env, spec *core.SignalSpec) (*Signal, error) {
	if env.Spec == nil {
		return nil, &core.BadMorph{Reason: `vis signal "` + spec.Name + `" outside of a visualization`}
	}
	path := core.SplitPath(spec.Target)
	return Poll(spec.Name, env.Scheduler, func() (core.Value, error) {
		x, have := core.GetPath(map[string]interface{}(env.Spec()), path)
		if !have {
			return core.Value{}, nil
		}
		return core.Of(x)
	}), nil
}

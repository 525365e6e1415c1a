package sio

import (
	"strconv"
	"time"

	"github.com/Comcast/morphs/core"
	"github.com/Comcast/morphs/engine"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus metrics for a Session and its engine.
type Metrics struct {
	// Activations counts applied transitions.
	// Labels: morph, transition
	Activations *prometheus.CounterVec

	// Deactivations counts stopped transitions.
	// Labels: transition, end (start, end), commit
	Deactivations *prometheus.CounterVec

	// Conflicts counts activations refused because of a channel
	// overlap.
	// Labels: transition
	Conflicts *prometheus.CounterVec

	Errors    prometheus.Counter
	Active    prometheus.Gauge
	Instances prometheus.Gauge
	Frames    prometheus.Counter

	// FrameSeconds measures how long a frame takes to run (not
	// the frame interval).
	FrameSeconds prometheus.Histogram
}

// NewMetrics makes the metrics and registers them with reg.  Give
// prometheus.DefaultRegisterer to serve them with promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Activations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "morphs",
			Subsystem: "engine",
			Name:      "activations_total",
			Help:      "Transitions applied",
		}, []string{"morph", "transition"}),
		Deactivations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "morphs",
			Subsystem: "engine",
			Name:      "deactivations_total",
			Help:      "Transitions stopped",
		}, []string{"transition", "end", "commit"}),
		Conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "morphs",
			Subsystem: "engine",
			Name:      "conflicts_total",
			Help:      "Activations refused due to overlapping channels",
		}, []string{"transition"}),
		Errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "morphs",
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Errors reported by visualization instances",
		}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "morphs",
			Subsystem: "engine",
			Name:      "active_transitions",
			Help:      "Transitions currently active",
		}),
		Instances: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "morphs",
			Subsystem: "session",
			Name:      "instances",
			Help:      "Visualization instances",
		}),
		Frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "morphs",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Frames run",
		}),
		FrameSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "morphs",
			Subsystem: "session",
			Name:      "frame_seconds",
			Help:      "Time spent running a frame",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.1},
		}),
	}
}

// Hooks returns engine hooks that count and then call next.
func (m *Metrics) Hooks(next engine.Hooks) engine.Hooks {
	return engine.Hooks{
		OnActivate: func(inst *engine.Instance, at *engine.ActiveTransition) {
			m.Activations.WithLabelValues(at.Morph, at.Name).Inc()
			m.Active.Inc()
			if next.OnActivate != nil {
				next.OnActivate(inst, at)
			}
		},
		OnDeactivate: func(inst *engine.Instance, at *engine.ActiveTransition, goToEnd, commit bool) {
			end := "start"
			if goToEnd {
				end = "end"
			}
			m.Deactivations.WithLabelValues(at.Name, end, strconv.FormatBool(commit)).Inc()
			m.Active.Dec()
			if next.OnDeactivate != nil {
				next.OnDeactivate(inst, at, goToEnd, commit)
			}
		},
		OnConflict: func(inst *engine.Instance, err *core.TransitionConflict) {
			m.Conflicts.WithLabelValues(err.Transition).Inc()
			if next.OnConflict != nil {
				next.OnConflict(inst, err)
			}
		},
		OnError: func(inst *engine.Instance, err error) {
			m.Errors.Inc()
			if next.OnError != nil {
				next.OnError(inst, err)
			}
		},
	}
}

// Instrument wraps the engine's hooks.
func (m *Metrics) Instrument(e *engine.Engine) {
	e.Hooks = m.Hooks(e.Hooks)
}

// Frame records a frame.
func (m *Metrics) Frame(d time.Duration, instances int) {
	m.Frames.Inc()
	m.FrameSeconds.Observe(d.Seconds())
	m.Instances.Set(float64(instances))
}

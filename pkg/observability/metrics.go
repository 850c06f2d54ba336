package observability

import (
	"context"
	"strings"

	"github.com/aretw0/flowgen/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors fed by compile hooks.
type Metrics struct {
	Compilations   prometheus.Counter
	States         prometheus.Counter
	Renames        prometheus.Counter
	Modified       *prometheus.CounterVec
	CompileSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Compilations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowgen_compilations_total",
			Help: "Total number of compiled flows",
		}),
		States: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowgen_compiled_states_total",
			Help: "Total number of states emitted by compilations",
		}),
		Renames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowgen_state_renames_total",
			Help: "Total number of states renamed to resolve collisions",
		}),
		Modified: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowgen_modified_states_total",
				Help: "Total number of states patched by modifiers",
			},
			[]string{"selector"},
		),
		CompileSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowgen_compile_duration_seconds",
			Help:    "Duration of flow compilations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.Compilations, m.States, m.Renames, m.Modified, m.CompileSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns compile hooks recording into m.
func (m *Metrics) Hooks() domain.CompileHooks {
	return domain.CompileHooks{
		OnRename: func(_ context.Context, _ *domain.RenameEvent) {
			m.Renames.Inc()
		},
		OnModified: func(_ context.Context, e *domain.ModifiedEvent) {
			m.Modified.WithLabelValues(selectorKind(e.Selector)).Inc()
		},
		OnCompiled: func(_ context.Context, e *domain.CompiledEvent) {
			m.Compilations.Inc()
			m.States.Add(float64(e.States))
			m.CompileSeconds.Observe(e.Duration.Seconds())
		},
	}
}

// selectorKind reduces "function=mock_func" to "function".
func selectorKind(selector string) string {
	kind, _, _ := strings.Cut(selector, "=")
	return kind
}

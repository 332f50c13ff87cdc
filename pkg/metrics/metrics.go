// Package metrics exposes Prometheus metrics for the Arbor runtime:
// context lookups, provider updates, re-renders, and live sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arbor-ui/arbor/pkg/arbor"
)

// Config configures the Prometheus metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "arbor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the Prometheus metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "arbor",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus metrics for Arbor.
type Metrics struct {
	lookupsTotal    *prometheus.CounterVec
	providerUpdates *prometheus.CounterVec
	rerendersTotal  prometheus.Counter
	flushesTotal    prometheus.Counter
	framesSent      prometheus.Counter
	activeSessions  prometheus.Gauge
}

// globalMetrics is the singleton instance, created on first Enable call.
var (
	globalMetrics *Metrics
	globalOnce    sync.Once
)

func initMetrics(config Config) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		lookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "context_lookups_total",
			Help:        "Total number of context lookups",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		providerUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "provider_updates_total",
			Help:        "Total number of provider value writes",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		rerendersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rerenders_total",
			Help:        "Total number of component instances re-rendered",
			ConstLabels: config.ConstLabels,
		}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of render passes",
			ConstLabels: config.ConstLabels,
		}),

		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_sent_total",
			Help:        "Total number of update frames sent to clients",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active live sessions",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Enable initializes the metrics singleton and hooks the reactive core's
// instrumentation callbacks to it. Subsequent calls return the same
// instance; options are honored only on the first call.
func Enable(opts ...Option) *Metrics {
	globalOnce.Do(func() {
		config := defaultConfig()
		for _, opt := range opts {
			opt(&config)
		}
		globalMetrics = initMetrics(config)

		arbor.Instrument.LookupDone = func(hit bool) {
			if hit {
				globalMetrics.lookupsTotal.WithLabelValues("hit").Inc()
			} else {
				globalMetrics.lookupsTotal.WithLabelValues("miss").Inc()
			}
		}
		arbor.Instrument.ProviderUpdate = func(changed bool) {
			if changed {
				globalMetrics.providerUpdates.WithLabelValues("applied").Inc()
			} else {
				globalMetrics.providerUpdates.WithLabelValues("skipped_equal").Inc()
			}
		}
	})
	return globalMetrics
}

// ObserveFlush records one render pass and how many instances it
// re-rendered.
func (m *Metrics) ObserveFlush(rendered int) {
	m.flushesTotal.Inc()
	if rendered > 0 {
		m.rerendersTotal.Add(float64(rendered))
	}
}

// ObserveFrame records one update frame pushed to a client.
func (m *Metrics) ObserveFrame() {
	m.framesSent.Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	m.activeSessions.Dec()
}

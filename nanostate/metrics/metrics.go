// Package metrics counts what the state core does: cache hits and misses,
// invalidations, version bumps, emitted collection events and reconciled
// log sizes. Components record through the Recorder interface; Nop is the
// default and Prometheus exports to a prometheus.Registerer.
package metrics

import (
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder receives counts from entities and collections
type Recorder interface {
	CacheHit(property string)
	CacheMiss(property string)
	Invalidated(count int)
	VersionBumped(owner string)
	EventEmitted(action types.Action)
	LogFlushed(size int)
}

// Nop discards everything
type Nop struct{}

func (Nop) CacheHit(string)           {}
func (Nop) CacheMiss(string)          {}
func (Nop) Invalidated(int)           {}
func (Nop) VersionBumped(string)      {}
func (Nop) EventEmitted(types.Action) {}
func (Nop) LogFlushed(int)            {}

// Owner labels for VersionBumped
const (
	OwnerEntity     = "entity"
	OwnerCollection = "collection"
)

// Config configures a Prometheus recorder
type Config struct {
	// Namespace is the metrics namespace. Defaults to "nanostate".
	Namespace string
	// Registry receives the collectors. Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// LogSizeBuckets are histogram buckets for flushed log sizes
	LogSizeBuckets []float64
}

// DefaultConfig returns a configuration with default namespace and buckets
func DefaultConfig() Config {
	return Config{
		Namespace:      "nanostate",
		LogSizeBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
	}
}

// Prometheus records into Prometheus collectors
type Prometheus struct {
	cacheLookups  *prometheus.CounterVec
	invalidations prometheus.Counter
	versionBumps  *prometheus.CounterVec
	events        *prometheus.CounterVec
	logSizes      prometheus.Histogram
}

// NewPrometheus creates and registers the collectors
func NewPrometheus(cfg Config) (*Prometheus, error) {
	def := DefaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if len(cfg.LogSizeBuckets) == 0 {
		cfg.LogSizeBuckets = def.LogSizeBuckets
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "entity",
			Name:      "cache_lookups_total",
			Help:      "Computed property cache lookups by result.",
		}, []string{"result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "entity",
			Name:      "cache_invalidations_total",
			Help:      "Cached computed values dropped by dependency invalidation.",
		}),
		versionBumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "version_bumps_total",
			Help:      "Version counter increments by owner kind.",
		}, []string{"owner"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "collection",
			Name:      "events_total",
			Help:      "Collection change events emitted by action.",
		}, []string{"action"}),
		logSizes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "collection",
			Name:      "flushed_log_size",
			Help:      "Mutation log entries reconciled per flush.",
			Buckets:   cfg.LogSizeBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{p.cacheLookups, p.invalidations, p.versionBumps, p.events, p.logSizes} {
		if err := cfg.Registry.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register metric")
		}
	}
	return p, nil
}

func (p *Prometheus) CacheHit(string) {
	p.cacheLookups.WithLabelValues("hit").Inc()
}

func (p *Prometheus) CacheMiss(string) {
	p.cacheLookups.WithLabelValues("miss").Inc()
}

func (p *Prometheus) Invalidated(count int) {
	p.invalidations.Add(float64(count))
}

func (p *Prometheus) VersionBumped(owner string) {
	p.versionBumps.WithLabelValues(owner).Inc()
}

func (p *Prometheus) EventEmitted(action types.Action) {
	p.events.WithLabelValues(action.String()).Inc()
}

func (p *Prometheus) LogFlushed(size int) {
	p.logSizes.Observe(float64(size))
}

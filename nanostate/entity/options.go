package entity

import (
	"github.com/arthur-debert/nanostate/nanostate/bus"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/arthur-debert/nanostate/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures an Entity
type Option func(*Entity)

// WithAdapter sets the raw store. Defaults to an empty storage.MapAdapter.
func WithAdapter(store storage.Adapter) Option {
	return func(e *Entity) {
		e.store = store
	}
}

// WithValues seeds the raw store. Seeded values are the entity's baseline
// and are not reported as changes.
func WithValues(values map[string]any) Option {
	return func(e *Entity) {
		if e.initial == nil {
			e.initial = make(map[string]any, len(values))
		}
		for k, v := range values {
			e.initial[k] = v
		}
	}
}

// Define adds a property definition. Definitions keep their declaration
// order; defining the same name twice replaces the earlier definition.
func Define(name string, def PropertyDef) Option {
	return func(e *Entity) {
		if _, exists := e.defs[name]; !exists {
			e.order = append(e.order, name)
		}
		e.defs[name] = def
	}
}

// WithCacheAll caches every computed result. By default only object-like
// results are kept, which is enough to give mutable results a stable
// identity across reads.
func WithCacheAll() Option {
	return func(e *Entity) {
		e.cacheAll = true
	}
}

// WithState sets the initial lifecycle state. Defaults to types.Detached.
func WithState(state types.LifecycleState) Option {
	return func(e *Entity) {
		e.state = state
	}
}

// WithID sets the identity key. Defaults to a random UUID.
func WithID(id uuid.UUID) Option {
	return func(e *Entity) {
		e.id = id
	}
}

// WithBus publishes change events on b instead of a private bus
func WithBus(b *bus.Bus) Option {
	return func(e *Entity) {
		e.bus = b
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(e *Entity) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to metrics.Nop.
func WithMetrics(r metrics.Recorder) Option {
	return func(e *Entity) {
		e.metrics = r
	}
}

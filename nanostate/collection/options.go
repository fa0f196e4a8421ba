package collection

import (
	"github.com/arthur-debert/nanostate/nanostate/bus"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultResetThreshold escalates item changes to a Reset only when every
// item in the collection changed within one window
const DefaultResetThreshold = 1.0

// Option configures a Collection
type Option func(*Collection)

// WithItems sets the initial items. They form the change-tracking baseline.
func WithItems(items ...any) Option {
	return func(c *Collection) {
		c.items = append(c.items, items...)
	}
}

// WithResetThreshold sets the fraction of items that must change within
// one window for the change events to collapse into a single Reset.
// Values above 1 are clamped to 1; zero or less disables escalation.
func WithResetThreshold(fraction float64) Option {
	return func(c *Collection) {
		if fraction > 1 {
			fraction = 1
		}
		c.resetThreshold = fraction
	}
}

// WithID sets the identity key. Defaults to a random UUID.
func WithID(id uuid.UUID) Option {
	return func(c *Collection) {
		c.id = id
	}
}

// WithBus publishes collection events on b instead of a private bus
func WithBus(b *bus.Bus) Option {
	return func(c *Collection) {
		c.bus = b
	}
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collection) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Defaults to metrics.Nop.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Collection) {
		c.metrics = r
	}
}

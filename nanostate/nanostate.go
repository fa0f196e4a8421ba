// Package nanostate provides reactive entities and observable collections.
//
// Entities hold stored fields and lazily computed properties, track which
// fields changed since the last accept, and propagate changes through
// nested entities and collections. Collections batch structural mutations
// and reconcile them into minimal change events.
package nanostate

import (
	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/nanostate/envelope"
	"github.com/arthur-debert/nanostate/nanostate/storage"
)

// Entity is an alias for entity.Entity
type Entity = entity.Entity

// EntityOption is an alias for entity.Option
type EntityOption = entity.Option

// PropertyDef is an alias for entity.PropertyDef
type PropertyDef = entity.PropertyDef

// Collection is an alias for collection.Collection
type Collection = collection.Collection

// CollectionOption is an alias for collection.Option
type CollectionOption = collection.Option

// Adapter is an alias for storage.Adapter
type Adapter = storage.Adapter

// Schema is an alias for storage.Schema
type Schema = storage.Schema

// Envelope is an alias for envelope.Context
type Envelope = envelope.Context

// NewEntity creates an entity over a map store unless an adapter option is given
func NewEntity(opts ...EntityOption) (*Entity, error) {
	return entity.New(opts...)
}

// NewCollection creates a collection with event raising enabled
func NewCollection(opts ...CollectionOption) *Collection {
	return collection.New(opts...)
}

// NewEnvelope creates a serialization context
func NewEnvelope(opts ...envelope.Option) *Envelope {
	return envelope.New(opts...)
}

// LoadSchema reads a YAML schema file
func LoadSchema(path string) (*Schema, error) {
	return storage.LoadSchema(path)
}

// Entity options

var (
	WithValues   = entity.WithValues
	WithAdapter  = entity.WithAdapter
	Define       = entity.Define
	WithCacheAll = entity.WithCacheAll
	WithState    = entity.WithState
)

// Collection options

var (
	WithItems          = collection.WithItems
	WithResetThreshold = collection.WithResetThreshold
)

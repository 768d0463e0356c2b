// Package storage is the storage duality layer: one query contract that
// behaves the same whether records live in a remote backend or in the local
// persistence store. Which backing is used is decided once per process, see
// package binding.
package storage

import (
	"context"

	"github.com/papercomputeco/yearbook/pkg/record"
)

// Backing names where a Driver keeps its records.
type Backing string

const (
	BackingRemote Backing = "remote"
	BackingLocal  Backing = "local"
)

// Driver is the fixed operation set every backing implements. Drivers never
// cache records across calls and never retry; every read re-fetches.
type Driver interface {
	// Query returns the records of a collection, optionally filtered by a
	// single equality predicate and ordered by a single field. A nil
	// OrderBy orders by created_at descending.
	Query(ctx context.Context, collection string, q Query) ([]record.Fields, error)

	// Insert stores a record without an id. The driver assigns the id and,
	// when absent, created_at, and returns the record as stored.
	Insert(ctx context.Context, collection string, fields record.Fields) (record.Fields, error)

	// DeleteByID removes a record. It reports whether a record was found and
	// removed; an absent id is not an error.
	DeleteByID(ctx context.Context, collection, id string) (bool, error)

	// Subscribe registers fn for changes in collection matching filter.
	// Backings without live updates return a Subscription that never fires;
	// callers must treat that as valid behavior.
	Subscribe(ctx context.Context, collection string, filter *Equals, fn func(Change)) (Subscription, error)

	// Backing reports which side of the duality this driver is.
	Backing() Backing

	// Close releases the driver's resources.
	Close() error
}

// ChangeType is the kind of row change delivered to subscribers.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is a live-update notification.
type Change struct {
	Type       ChangeType
	Collection string

	// Record is the new row for inserts and updates, the old row (possibly
	// only its id) for deletes.
	Record record.Fields
}

// Subscription is a registered live-update listener.
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe() error
}

// NopSubscription never fires.
type NopSubscription struct{}

// Unsubscribe is a no-op.
func (NopSubscription) Unsubscribe() error { return nil }

// Package local is the local backing of the storage duality layer. Each
// collection is one serialized JSON array in a kv.Store; every write reads the
// whole collection, mutates it, and writes it back.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/papercomputeco/yearbook/pkg/kv"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// KeyPrefix prefixes the kv key of every collection document.
const KeyPrefix = "yearbook_"

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Driver implements storage.Driver over a kv.Store.
type Driver struct {
	// mu serializes every read-modify-write cycle. The kv document is shared
	// per collection, so two unserialized writers would lose updates.
	mu sync.RWMutex

	store  kv.Store
	logger *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewDriver wraps store. The driver owns store and closes it on Close.
func NewDriver(store kv.Store, logger *slog.Logger) *Driver {
	return &Driver{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Query reads the collection, filters it and re-sorts it by the requested
// order field.
func (d *Driver) Query(ctx context.Context, collection string, q storage.Query) ([]record.Fields, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.load(ctx, "query", collection)
	if err != nil {
		return nil, err
	}

	result := make([]record.Fields, 0, len(rows))
	for _, row := range rows {
		if storage.Matches(row, q.Equals) {
			result = append(result, row.Clone())
		}
	}

	storage.Sort(result, q.Order())
	return result, nil
}

// Insert assigns a local id and default created_at, appends the record and
// writes the collection back.
func (d *Driver) Insert(ctx context.Context, collection string, fields record.Fields) (record.Fields, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.load(ctx, "insert", collection)
	if err != nil {
		return nil, err
	}

	stored := fields.Clone()
	stored[record.FieldID] = d.newID(rows)
	if stored.CreatedAt() == "" {
		stored[record.FieldCreatedAt] = record.FormatTime(d.now())
	}

	rows = append(rows, stored)
	if err := d.save(ctx, "insert", collection, rows); err != nil {
		return nil, err
	}

	d.logger.Debug("inserted local record",
		"collection", collection,
		"id", stored.ID(),
	)

	return stored.Clone(), nil
}

// DeleteByID removes the record with id. The collection is only rewritten
// when something was removed.
func (d *Driver) DeleteByID(ctx context.Context, collection, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.load(ctx, "delete", collection)
	if err != nil {
		return false, err
	}

	kept := rows[:0:0]
	for _, row := range rows {
		if row.ID() != id {
			kept = append(kept, row)
		}
	}

	if len(kept) == len(rows) {
		return false, nil
	}

	if err := d.save(ctx, "delete", collection, kept); err != nil {
		return false, err
	}

	d.logger.Debug("deleted local record",
		"collection", collection,
		"id", id,
	)
	return true, nil
}

// Subscribe returns a subscription that never fires: the local store has no
// change feed.
func (d *Driver) Subscribe(_ context.Context, collection string, _ *storage.Equals, _ func(storage.Change)) (storage.Subscription, error) {
	d.logger.Debug("live updates unavailable on local backing", "collection", collection)
	return storage.NopSubscription{}, nil
}

// Backing reports storage.BackingLocal.
func (d *Driver) Backing() storage.Backing {
	return storage.BackingLocal
}

// Close closes the underlying store.
func (d *Driver) Close() error {
	return d.store.Close()
}

func (d *Driver) load(ctx context.Context, op, collection string) ([]record.Fields, error) {
	doc, err := d.store.Get(ctx, KeyPrefix+collection)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Transient(op, collection, err)
	}

	var rows []record.Fields
	if err := json.Unmarshal(doc, &rows); err != nil {
		return nil, storage.Transient(op, collection, fmt.Errorf("decoding collection: %w", err))
	}
	return rows, nil
}

func (d *Driver) save(ctx context.Context, op, collection string, rows []record.Fields) error {
	doc, err := json.Marshal(rows)
	if err != nil {
		return storage.Transient(op, collection, fmt.Errorf("encoding collection: %w", err))
	}

	if err := d.store.Set(ctx, KeyPrefix+collection, doc); err != nil {
		return storage.Transient(op, collection, err)
	}
	return nil
}

// newID builds local_<unix ms>_<9 random base36 chars>, retrying on the
// unlikely collision with an existing row.
func (d *Driver) newID(rows []record.Fields) string {
	taken := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		taken[row.ID()] = struct{}{}
	}

	for {
		suffix := make([]byte, 9)
		for i := range suffix {
			suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
		}

		id := "local_" + strconv.FormatInt(d.now().UnixMilli(), 10) + "_" + string(suffix)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

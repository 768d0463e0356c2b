package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/papercomputeco/yearbook/pkg/record"
)

// Collection is a typed view over one collection of a Driver. T must
// round-trip through JSON with the collection's field names.
type Collection[T any] struct {
	driver Driver
	name   string
}

// NewCollection binds a typed collection to driver.
func NewCollection[T any](driver Driver, name string) *Collection[T] {
	return &Collection[T]{driver: driver, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Driver returns the underlying driver.
func (c *Collection[T]) Driver() Driver {
	return c.driver
}

// Query runs q and decodes every row into T.
func (c *Collection[T]) Query(ctx context.Context, q Query) ([]T, error) {
	rows, err := c.driver.Query(ctx, c.name, q)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := Decode[T](row)
		if err != nil {
			return nil, Transient("query", c.name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert encodes v, drops an empty id so the backing assigns one, and
// returns the stored value.
func (c *Collection[T]) Insert(ctx context.Context, v T) (T, error) {
	var zero T

	fields, err := Encode(v)
	if err != nil {
		return zero, Transient("insert", c.name, err)
	}
	if fields.ID() == "" {
		delete(fields, record.FieldID)
	}
	if fields.CreatedAt() == "" {
		delete(fields, record.FieldCreatedAt)
	}

	stored, err := c.driver.Insert(ctx, c.name, fields)
	if err != nil {
		return zero, err
	}

	out, err := Decode[T](stored)
	if err != nil {
		return zero, Transient("insert", c.name, err)
	}
	return out, nil
}

// DeleteByID removes the record with id and reports whether it existed.
func (c *Collection[T]) DeleteByID(ctx context.Context, id string) (bool, error) {
	return c.driver.DeleteByID(ctx, c.name, id)
}

// Subscribe forwards to the driver's live updates for this collection.
func (c *Collection[T]) Subscribe(ctx context.Context, filter *Equals, fn func(Change)) (Subscription, error) {
	return c.driver.Subscribe(ctx, c.name, filter, fn)
}

// Encode converts a typed record into Fields.
func Encode(v any) (record.Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	var fields record.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding record fields: %w", err)
	}
	return fields, nil
}

// Decode converts Fields into a typed record.
func Decode[T any](fields record.Fields) (T, error) {
	var out T

	raw, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encoding record fields: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding record: %w", err)
	}
	return out, nil
}

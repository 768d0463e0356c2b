// Package sqlite provides a durable kv.Store backed by a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/yearbook/pkg/kv"
)

const table = "kv"

// Store implements kv.Store on SQLite.
type Store struct {
	db      *sql.DB
	builder *entsql.DialectBuilder
	quota   int64
}

// Option configures a Store.
type Option func(*Store)

// WithQuota limits the size of a single document.
func WithQuota(bytes int64) Option {
	return func(s *Store) {
		s.quota = bytes
	}
}

// NewStore opens (creating if needed) the SQLite database at dbPath.
// dbPath can be a file path or ":memory:".
func NewStore(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives per connection; pin the pool to one.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		builder: entsql.Dialect(dialect.SQLite),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query, args := s.builder.CreateTable(table).
		IfNotExists().
		Columns(
			entsql.Column("key").Type("TEXT").Attr("PRIMARY KEY"),
			entsql.Column("value").Type("BLOB").Attr("NOT NULL"),
		).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the document under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query, args := s.builder.Select("value").
		From(s.builder.Table(table)).
		Where(entsql.EQ("key", key)).
		Query()

	var value []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	return value, nil
}

// Set upserts the document under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.CheckQuota(s.quota, key, value); err != nil {
		return err
	}

	query, args := s.builder.Insert(table).
		Columns("key", "value").
		Values(key, value).
		OnConflict(
			entsql.ConflictColumns("key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	query, args := s.builder.Delete(table).
		Where(entsql.EQ("key", key)).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// notification is the payload published by yearbook_notify().
type notification struct {
	Table  string        `json:"table"`
	Type   string        `json:"type"`
	Record record.Fields `json:"record"`
}

type listenSubscription struct {
	conn   *pgxpool.Conn
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Subscribe holds one pooled connection in LISTEN until Unsubscribe. Change
// events whose document was too large for the notify payload are re-read by
// id before the filter is applied.
func (d *Driver) Subscribe(ctx context.Context, collection string, filter *storage.Equals, fn func(storage.Change)) (storage.Subscription, error) {
	if err := d.ensureCollection(ctx, "subscribe", collection); err != nil {
		return nil, err
	}

	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, classify("subscribe", collection, err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, classify("subscribe", collection, err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	sub := &listenSubscription{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go d.listen(listenCtx, sub, collection, filter, fn)
	return sub, nil
}

func (d *Driver) listen(ctx context.Context, sub *listenSubscription, collection string, filter *storage.Equals, fn func(storage.Change)) {
	defer close(sub.done)

	for {
		n, err := sub.conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				d.logger.Warn("postgres listen ended", "collection", collection, "error", err)
			}
			return
		}

		var msg notification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			d.logger.Warn("undecodable change notification", "error", err)
			continue
		}
		if msg.Table != collection {
			continue
		}

		change := storage.Change{
			Type:       storage.ChangeType(msg.Type),
			Collection: collection,
			Record:     msg.Record,
		}

		if filter != nil {
			_, ok := change.Record[filter.Field]
			switch {
			case !ok && change.Type == storage.ChangeDelete:
				// A deleted document reduced to its id cannot be evaluated;
				// it is delivered so watchers can refetch.
				fn(change)
				continue
			case !ok:
				full, err := d.fetch(ctx, collection, msg.Record.ID())
				if err != nil {
					d.logger.Warn("re-reading changed record", "collection", collection, "error", err)
					continue
				}
				if full == nil {
					continue
				}
				change.Record = full
			}
			if !storage.Matches(change.Record, filter) {
				continue
			}
		}

		fn(change)
	}
}

func (d *Driver) fetch(ctx context.Context, collection, id string) (record.Fields, error) {
	rows, err := d.Query(ctx, collection, storage.Query{Equals: storage.Eq(record.FieldID, id)})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Unsubscribe stops listening and returns the connection to the pool.
func (s *listenSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done

		// A wait interrupted by cancellation may leave the connection
		// closed; the pool discards closed connections on release.
		if !s.conn.Conn().IsClosed() {
			if _, uerr := s.conn.Exec(context.Background(), "UNLISTEN *"); uerr != nil && !errors.Is(uerr, context.Canceled) {
				err = fmt.Errorf("unlisten: %w", uerr)
			}
		}
		s.conn.Release()
	})
	return err
}

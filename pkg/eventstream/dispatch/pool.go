// Package dispatch provides an asynchronous worker pool that publishes record
// events through an eventstream.Publisher.
//
// The pool decouples publication from the write path so that a slow or
// unreachable event backend never delays storing a record.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/yearbook/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultQueueSize      uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every enqueued event.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds a single publication (defaults to 10s).
	PublishTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.RecordEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	// closeMu guards closed so Enqueue never sends on a closed channel.
	closeMu sync.RWMutex
	closed  bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	p := &Pool{
		config: c,
		queue:  make(chan *eventstream.RecordEvent, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits an event for publication.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the event being dropped.
func (p *Pool) Enqueue(event *eventstream.RecordEvent) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()

	if p.closed {
		p.logger.Warn("event not queued, pool closed",
			"event_type", event.EventType,
			"record_id", event.RecordID,
		)
		return false
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"record_id", event.RecordID,
		)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_type", event.EventType,
			"record_id", event.RecordID,
		)
		return false
	}
}

// Close stops accepting events, waits for queued events to drain and closes
// the publisher.
func (p *Pool) Close() error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.closeMu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls events off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.RecordEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.Publish(ctx, event); err != nil {
		p.logger.Error("event publication failed",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("event published",
		"event_type", event.EventType,
		"event_id", event.EventID,
	)
}

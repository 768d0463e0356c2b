package api

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/yearbook/pkg/sse"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// changeBuffer bounds how far a slow client may lag before changes drop.
const changeBuffer = 64

// handleYearEvents streams live changes to a year's memories as server-sent
// events. On the local backing nothing ever arrives and the stream only
// carries keep-alive comments.
func (s *Server) handleYearEvents(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	changes := make(chan storage.Change, changeBuffer)

	// The stream outlives the request context, so the subscription gets its
	// own and is torn down when the writer loop exits.
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.journal.WatchYear(ctx, year, func(ch storage.Change) {
		select {
		case changes <- ch:
		default:
			s.logger.Warn("event stream lagging, dropping change", "year", year, "type", ch.Type)
		}
	})
	if err != nil {
		cancel()
		return s.fail(c, "subscribing to year", err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	s.logger.Debug("event stream opened", "year", year, "backing", s.journal.Backing())

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				s.logger.Warn("unsubscribing event stream", "error", err)
			}
		}()

		s.streamChanges(sse.NewWriter(w), changes)
		s.logger.Debug("event stream closed", "year", year)
	})

	return nil
}

// streamChanges writes changes until the client goes away or the server
// shuts down. Pending changes are flushed before a shutdown ends the stream.
func (s *Server) streamChanges(w *sse.Writer, changes <-chan storage.Change) {
	ticker := time.NewTicker(s.config.KeepAlive)
	defer ticker.Stop()

	if err := w.Comment("connected"); err != nil {
		return
	}

	for {
		select {
		case ch := <-changes:
			if err := writeChange(w, ch); err != nil {
				return
			}
		case <-ticker.C:
			if err := w.Comment("keep-alive"); err != nil {
				return
			}
		case <-s.done:
			for {
				select {
				case ch := <-changes:
					if err := writeChange(w, ch); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func writeChange(w *sse.Writer, ch storage.Change) error {
	data, err := json.Marshal(ch.Record)
	if err != nil {
		return err
	}

	return w.WriteEvent(sse.Event{
		ID:   ch.Record.ID(),
		Type: strings.ToLower(string(ch.Type)),
		Data: string(data),
	})
}

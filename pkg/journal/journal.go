// Package journal composes the storage duality layer, the media pipeline and
// the event stream into the operations a client performs: posting memories,
// listing a year, resolving media and exchanging letters.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/yearbook/pkg/eventstream"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// MaxFiles is the most files one memory can carry: one provider album.
const MaxFiles = 10

// ErrInvalidDraft is wrapped by every draft validation failure.
var ErrInvalidDraft = errors.New("invalid draft")

// EventSink accepts record events for asynchronous publication.
type EventSink interface {
	Enqueue(event *eventstream.RecordEvent) bool
}

// Config wires a Service.
type Config struct {
	// Driver is the bound storage driver.
	Driver storage.Driver

	// Pipeline uploads media. Required only for drafts with files.
	Pipeline *media.Pipeline

	// Resolver resolves media refs. Optional.
	Resolver *media.Resolver

	// Events receives inserted and deleted record events. Optional.
	Events EventSink

	// AnnounceText also posts text-only memories to the media provider.
	AnnounceText bool

	Logger *slog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	driver       storage.Driver
	memories     *storage.Collection[record.Memory]
	letters      *storage.Collection[record.Letter]
	pipeline     *media.Pipeline
	resolver     *media.Resolver
	events       EventSink
	announceText bool
	logger       *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// New creates a Service.
func New(c Config) *Service {
	return &Service{
		driver:       c.Driver,
		memories:     storage.NewCollection[record.Memory](c.Driver, record.Memories),
		letters:      storage.NewCollection[record.Letter](c.Driver, record.Letters),
		pipeline:     c.Pipeline,
		resolver:     c.Resolver,
		events:       c.Events,
		announceText: c.AnnounceText,
		logger:       c.Logger,
		now:          time.Now,
	}
}

// Backing reports which side of the storage duality the service writes to.
func (s *Service) Backing() storage.Backing {
	return s.driver.Backing()
}

// Draft is a memory before upload and storage.
type Draft struct {
	Content     string
	Author      string
	ExternalURL string
	YearNumber  int

	// CreatedAt backdates the memory. Any RFC 3339 timestamp; empty means now.
	CreatedAt string

	Files []media.File
}

// Validate checks the draft before anything is sent anywhere.
func (d *Draft) Validate() error {
	if strings.TrimSpace(d.Content) == "" && len(d.Files) == 0 && strings.TrimSpace(d.ExternalURL) == "" {
		return fmt.Errorf("%w: content, files or an external link is required", ErrInvalidDraft)
	}
	if d.YearNumber <= 0 {
		return fmt.Errorf("%w: year must be positive, got %d", ErrInvalidDraft, d.YearNumber)
	}
	if len(d.Files) > MaxFiles {
		return fmt.Errorf("%w: at most %d files, got %d", ErrInvalidDraft, MaxFiles, len(d.Files))
	}
	if d.CreatedAt != "" {
		if _, err := record.ParseTime(d.CreatedAt); err != nil {
			return fmt.Errorf("%w: created_at: %v", ErrInvalidDraft, err)
		}
	}
	return nil
}

// Post uploads the draft's files as one provider post, then stores the
// memory. A failed upload stores nothing.
func (s *Service) Post(ctx context.Context, d Draft) (*record.Memory, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := record.Memory{
		Type:       InferType(d.Files),
		Content:    d.Content,
		YearNumber: d.YearNumber,
		MediaRefs:  []string{},
	}
	if d.Author != "" {
		m.Author = &d.Author
	}
	if d.ExternalURL != "" {
		m.ExternalURL = &d.ExternalURL
	}
	if d.CreatedAt != "" {
		t, _ := record.ParseTime(d.CreatedAt)
		m.CreatedAt = record.FormatTime(t)
	}

	switch {
	case len(d.Files) > 0:
		res, err := s.pipeline.Upload(ctx, media.Post{Caption: d.Content, Author: d.Author, Files: d.Files})
		if err != nil {
			return nil, fmt.Errorf("uploading media: %w", err)
		}

		postID := res.PostID
		m.ProviderPostID = &postID
		m.MediaRefs = OrderRefs(d.Files, res.FileIDs())

	case s.announceText && s.pipeline.Configured():
		// The announcement is best effort; the memory itself carries no
		// provider post.
		if _, err := s.pipeline.Upload(ctx, media.Post{Caption: d.Content, Author: d.Author}); err != nil {
			s.logger.Warn("announcing text memory", "error", err)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.memories.Insert(ctx, m)
	if err != nil {
		return nil, err
	}

	s.logger.Info("memory posted",
		"id", stored.ID,
		"type", stored.Type,
		"year", stored.YearNumber,
		"media", len(stored.MediaRefs),
		"backing", s.Backing(),
	)

	s.emit(eventstream.EventTypeRecordInserted, record.Memories, stored.ID, stored)
	return &stored, nil
}

// InferType is video when any file is a video, photo when there are only
// other files, and text without files.
func InferType(files []media.File) record.Type {
	if len(files) == 0 {
		return record.TypeText
	}
	for _, f := range files {
		if f.IsVideo() {
			return record.TypeVideo
		}
	}
	return record.TypePhoto
}

// OrderRefs moves the first video's ref to index 0, keeping the relative
// order of the rest. refs[i] belongs to files[i].
func OrderRefs(files []media.File, refs []string) []string {
	out := make([]string, 0, len(refs))
	video := -1
	for i, f := range files {
		if i < len(refs) && f.IsVideo() {
			video = i
			break
		}
	}
	if video < 0 {
		return append(out, refs...)
	}

	out = append(out, refs[video])
	out = append(out, refs[:video]...)
	return append(out, refs[video+1:]...)
}

// ListYear returns a year's memories, newest first.
func (s *Service) ListYear(ctx context.Context, year int) ([]record.Memory, error) {
	return s.memories.Query(ctx, storage.Query{
		Equals:  storage.Eq(record.FieldYearNumber, year),
		OrderBy: storage.Desc(record.FieldCreatedAt),
	})
}

// List runs an arbitrary query against memories.
func (s *Service) List(ctx context.Context, q storage.Query) ([]record.Memory, error) {
	return s.memories.Query(ctx, q)
}

// Delete removes a memory. Removing an absent id reports false.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.DeleteRecord(ctx, record.Memories, id)
}

// DeleteRecord removes a record from any collection, emitting a deleted
// event when something was removed.
func (s *Service) DeleteRecord(ctx context.Context, collection, id string) (bool, error) {
	removed, err := s.driver.DeleteByID(ctx, collection, id)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("record deleted", "collection", collection, "id", id, "backing", s.Backing())
		s.emit(eventstream.EventTypeRecordDeleted, collection, id, nil)
	}
	return removed, nil
}

// Query runs q against any collection and returns the raw records.
func (s *Service) Query(ctx context.Context, collection string, q storage.Query) ([]record.Fields, error) {
	return s.driver.Query(ctx, collection, q)
}

// MediaConfigured reports whether posts with files can be uploaded.
func (s *Service) MediaConfigured() bool {
	return s.pipeline.Configured()
}

// ResolveMedia returns one URL per media ref of m, "" where none is
// available.
func (s *Service) ResolveMedia(ctx context.Context, m *record.Memory) ([]string, error) {
	if s.resolver == nil {
		return make([]string, len(m.MediaRefs)), nil
	}
	return s.resolver.ResolveAll(ctx, m.MediaRefs)
}

// Resolve resolves one media ref.
func (s *Service) Resolve(ctx context.Context, ref string) (string, bool, error) {
	if s.resolver == nil {
		return "", false, nil
	}
	return s.resolver.Resolve(ctx, ref)
}

// WatchYear delivers live changes to a year's memories. On the local
// backing fn is never called.
func (s *Service) WatchYear(ctx context.Context, year int, fn func(storage.Change)) (storage.Subscription, error) {
	return s.memories.Subscribe(ctx, storage.Eq(record.FieldYearNumber, year), fn)
}

// LetterDraft is a letter before storage.
type LetterDraft struct {
	Message   string
	Recipient string
	Sender    string

	// ScheduledFor holds the letter back until then. Empty delivers now.
	ScheduledFor string
}

// WriteLetter stores a letter. It is delivered at once unless scheduled for
// the future.
func (s *Service) WriteLetter(ctx context.Context, d LetterDraft) (*record.Letter, error) {
	l := record.Letter{
		Message:     d.Message,
		Recipient:   d.Recipient,
		IsDelivered: true,
	}
	if d.Sender != "" {
		l.Sender = &d.Sender
	}

	if d.ScheduledFor != "" {
		t, err := record.ParseTime(d.ScheduledFor)
		if err != nil {
			return nil, fmt.Errorf("%w: scheduled_for: %v", ErrInvalidDraft, err)
		}
		scheduled := record.FormatTime(t)
		l.ScheduledFor = &scheduled
		l.IsDelivered = !t.After(s.now())
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	stored, err := s.letters.Insert(ctx, l)
	if err != nil {
		return nil, err
	}

	s.logger.Info("letter written",
		"id", stored.ID,
		"delivered", stored.IsDelivered,
	)
	s.emit(eventstream.EventTypeRecordInserted, record.Letters, stored.ID, stored)
	return &stored, nil
}

// ListLetters returns letters newest first. A non-nil delivered filters by
// delivery state.
func (s *Service) ListLetters(ctx context.Context, delivered *bool) ([]record.Letter, error) {
	q := storage.Query{OrderBy: storage.Desc(record.FieldCreatedAt)}
	if delivered != nil {
		q.Equals = storage.Eq("is_delivered", *delivered)
	}
	return s.letters.Query(ctx, q)
}

func (s *Service) emit(eventType, collection, id string, v any) {
	if s.events == nil {
		return
	}

	var fields record.Fields
	if v != nil {
		f, err := storage.Encode(v)
		if err != nil {
			s.logger.Warn("encoding event record", "id", id, "error", err)
		}
		fields = f
	}

	s.events.Enqueue(eventstream.NewRecordEvent(eventType, collection, id, s.Backing(), fields))
}

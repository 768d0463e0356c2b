// Package record defines the records persisted by yearbook: memories posted
// into yearly buckets and letters. Records are created once and removed only
// by deletion; there is no update path.
package record

import (
	"errors"
	"time"
)

// Collection names.
const (
	Memories = "memories"
	Letters  = "letters"
)

// Well-known field names shared by every collection.
const (
	FieldID         = "id"
	FieldCreatedAt  = "created_at"
	FieldYearNumber = "year_number"
)

// TimeLayout is ISO 8601 in UTC with millisecond precision. Fixed width keeps
// lexicographic order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Type is the kind of a memory, decided by what was uploaded with it.
type Type string

const (
	TypeText  Type = "text"
	TypePhoto Type = "photo"
	TypeVideo Type = "video"
)

// Valid reports whether t is one of the known memory types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypePhoto, TypeVideo:
		return true
	}
	return false
}

// Fields is the untyped shape of a stored record, a decoded JSON object.
// Storage drivers only ever see Fields.
type Fields map[string]any

// ID returns the record id, or "" when unset.
func (f Fields) ID() string {
	id, _ := f[FieldID].(string)
	return id
}

// CreatedAt returns the raw created_at value, or "" when unset.
func (f Fields) CreatedAt() string {
	ts, _ := f[FieldCreatedAt].(string)
	return ts
}

// Clone returns a shallow copy so callers can't mutate a driver's state.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Memory is a dated entry in a yearly bucket.
type Memory struct {
	ID             string   `json:"id,omitempty"`
	Type           Type     `json:"type"`
	Content        string   `json:"content"`
	Author         *string  `json:"author"`
	ExternalURL    *string  `json:"external_url"`
	YearNumber     int      `json:"year_number"`
	CreatedAt      string   `json:"created_at,omitempty"`
	ProviderPostID *int64   `json:"provider_post_id"`
	MediaRefs      []string `json:"media_refs"`
}

// HasVideoFirst reports whether MediaRefs[0] is a video. Renderers rely on
// it: a video memory always carries its video reference at index 0.
func (m *Memory) HasVideoFirst() bool {
	return m.Type == TypeVideo && len(m.MediaRefs) > 0
}

// Letter is a message addressed to someone, optionally held back until
// ScheduledFor.
type Letter struct {
	ID           string  `json:"id,omitempty"`
	Message      string  `json:"message"`
	Recipient    string  `json:"recipient"`
	Sender       *string `json:"sender"`
	CreatedAt    string  `json:"created_at,omitempty"`
	ScheduledFor *string `json:"scheduled_for"`
	IsDelivered  bool    `json:"is_delivered"`
}

// FormatTime formats t with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses any RFC 3339 timestamp, including TimeLayout.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid record")

package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordInserted is emitted after a record is stored.
	EventTypeRecordInserted = "yearbook.record.inserted"

	// EventTypeRecordDeleted is emitted after a record is removed.
	EventTypeRecordDeleted = "yearbook.record.deleted"
)

// RecordEvent is a transport-neutral event payload for a record change.
type RecordEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Collection    string          `json:"collection"`
	RecordID      string          `json:"record_id"`
	Backing       storage.Backing `json:"backing"`

	// Record is the stored record for inserts and absent for deletes.
	Record record.Fields `json:"record,omitempty"`
}

// NewRecordEvent stamps a new event with a fresh id and the current time.
func NewRecordEvent(eventType, collection, recordID string, backing storage.Backing, fields record.Fields) *RecordEvent {
	return &RecordEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Collection:    collection,
		RecordID:      recordID,
		Backing:       backing,
		Record:        fields,
	}
}

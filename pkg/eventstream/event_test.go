package eventstream_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/eventstream"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

var _ = Describe("Event", func() {
	It("marshals RecordEvent with expected top-level keys", func() {
		event := eventstream.NewRecordEvent(
			eventstream.EventTypeRecordInserted,
			record.Memories,
			"local_1_abc",
			storage.BackingLocal,
			record.Fields{"id": "local_1_abc", "content": "hello"},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKeyWithValue("collection", "memories"))
		Expect(got).To(HaveKeyWithValue("record_id", "local_1_abc"))
		Expect(got).To(HaveKeyWithValue("backing", "local"))
		Expect(got).To(HaveKey("record"))
	})

	It("omits the record on deletes", func() {
		event := eventstream.NewRecordEvent(eventstream.EventTypeRecordDeleted, record.Memories, "x", storage.BackingRemote, nil)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).NotTo(ContainSubstring(`"record":`))
	})

	It("gives every event a distinct id", func() {
		a := eventstream.NewRecordEvent(eventstream.EventTypeRecordDeleted, record.Memories, "x", storage.BackingLocal, nil)
		b := eventstream.NewRecordEvent(eventstream.EventTypeRecordDeleted, record.Memories, "x", storage.BackingLocal, nil)
		Expect(a.EventID).To(HavePrefix("evt_"))
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRecordInserted).To(Equal("yearbook.record.inserted"))
		Expect(eventstream.EventTypeRecordDeleted).To(Equal("yearbook.record.deleted"))
	})

	It("provides ErrNilRecordEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilRecordEvent).To(MatchError("nil record event"))
	})
})

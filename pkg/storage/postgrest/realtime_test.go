package postgrest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/postgrest"
)

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

// realtimeServer is a minimal phoenix endpoint: it acknowledges joins and
// lets the test push frames to the joined topic.
type realtimeServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conn   *websocket.Conn
	topic  string
	query  string
	frames []frame
	joined chan struct{}
	gone   chan struct{}
}

func newRealtimeServer() *realtimeServer {
	rs := &realtimeServer{joined: make(chan struct{}), gone: make(chan struct{})}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.URL.Path).To(Equal("/realtime/v1/websocket"))

		conn, err := rs.upgrader.Upgrade(w, r, nil)
		Expect(err).NotTo(HaveOccurred())

		rs.mu.Lock()
		rs.conn = conn
		rs.query = r.URL.RawQuery
		rs.mu.Unlock()
		defer close(rs.gone)

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}

			rs.mu.Lock()
			rs.frames = append(rs.frames, f)
			rs.mu.Unlock()

			if f.Event == "phx_join" {
				rs.mu.Lock()
				rs.topic = f.Topic
				rs.mu.Unlock()
				rs.push(f.Topic, "phx_reply", `{"status":"ok","response":{}}`)
				close(rs.joined)
			}
		}
	}))
	return rs
}

func (rs *realtimeServer) push(topic, event, payload string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_ = rs.conn.WriteJSON(frame{Topic: topic, Event: event, Payload: json.RawMessage(payload)})
}

func (rs *realtimeServer) events() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]string, 0, len(rs.frames))
	for _, f := range rs.frames {
		out = append(out, f.Event)
	}
	return out
}

var _ = Describe("Subscribe", func() {
	var (
		ctx     context.Context
		rs      *realtimeServer
		driver  *postgrest.Driver
		mu      sync.Mutex
		changes []storage.Change
	)

	BeforeEach(func() {
		ctx = context.Background()
		changes = nil
		rs = newRealtimeServer()

		var err error
		driver, err = postgrest.NewDriver(postgrest.Config{
			URL:               rs.server.URL,
			Key:               "anon-key",
			HeartbeatInterval: 20 * time.Millisecond,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		rs.server.Close()
	})

	collect := func(c storage.Change) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, c)
	}

	received := func() []storage.Change {
		mu.Lock()
		defer mu.Unlock()
		return append([]storage.Change(nil), changes...)
	}

	It("joins with the collection filter and delivers changes", func() {
		sub, err := driver.Subscribe(ctx, record.Memories, storage.Eq(record.FieldYearNumber, 2), collect)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()

		Eventually(rs.joined).Should(BeClosed())

		rs.mu.Lock()
		join := rs.frames[0]
		topic := rs.topic
		query := rs.query
		rs.mu.Unlock()

		Expect(query).To(ContainSubstring("apikey=anon-key"))

		var payload struct {
			Config struct {
				PostgresChanges []map[string]string `json:"postgres_changes"`
			} `json:"config"`
		}
		Expect(json.Unmarshal(join.Payload, &payload)).To(Succeed())
		Expect(payload.Config.PostgresChanges).To(ConsistOf(map[string]string{
			"event":  "*",
			"schema": "public",
			"table":  "memories",
			"filter": "year_number=eq.2",
		}))

		rs.push(topic, "postgres_changes", `{"data":{"table":"memories","type":"INSERT","record":{"id":"a","year_number":2}}}`)
		rs.push(topic, "postgres_changes", `{"data":{"table":"memories","type":"DELETE","record":null,"old_record":{"id":"b"}}}`)
		rs.push("realtime:other", "postgres_changes", `{"data":{"table":"memories","type":"INSERT","record":{"id":"c"}}}`)

		Eventually(func() int { return len(received()) }).Should(Equal(2))

		got := received()
		Expect(got[0].Type).To(Equal(storage.ChangeInsert))
		Expect(got[0].Collection).To(Equal(record.Memories))
		Expect(got[0].Record.ID()).To(Equal("a"))
		Expect(got[1].Type).To(Equal(storage.ChangeDelete))
		Expect(got[1].Record.ID()).To(Equal("b"))
	})

	It("sends heartbeats while subscribed", func() {
		sub, err := driver.Subscribe(ctx, record.Memories, nil, collect)
		Expect(err).NotTo(HaveOccurred())
		defer sub.Unsubscribe()

		Eventually(rs.events).Should(ContainElement("heartbeat"))
	})

	It("leaves the channel on unsubscribe and tolerates a second call", func() {
		sub, err := driver.Subscribe(ctx, record.Memories, nil, collect)
		Expect(err).NotTo(HaveOccurred())
		Eventually(rs.joined).Should(BeClosed())

		_ = sub.Unsubscribe()
		Eventually(rs.events).Should(ContainElement("phx_leave"))
		Expect(sub.Unsubscribe()).To(Succeed())
	})

	It("closes the socket when the server closes the channel", func() {
		sub, err := driver.Subscribe(ctx, record.Memories, nil, collect)
		Expect(err).NotTo(HaveOccurred())
		Eventually(rs.joined).Should(BeClosed())

		rs.mu.Lock()
		topic := rs.topic
		rs.mu.Unlock()
		rs.push(topic, "phx_close", `{}`)

		Eventually(rs.gone).Should(BeClosed())

		Expect(sub.Unsubscribe()).To(Succeed())
	})

	It("fails as transient when the realtime endpoint is unreachable", func() {
		rs.server.Close()

		_, err := driver.Subscribe(ctx, record.Memories, nil, collect)
		Expect(storage.IsTransient(err)).To(BeTrue())
	})
})

package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cast"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

const realtimePath = "/realtime/v1/websocket"

// Phoenix channel events used by the realtime protocol.
const (
	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventReply           = "phx_reply"
	eventError           = "phx_error"
	eventClose           = "phx_close"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"
)

// envelope is one phoenix channel frame.
type envelope struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type joinConfig struct {
	PostgresChanges []changeFilter `json:"postgres_changes"`
}

type changeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Table     string        `json:"table"`
		Type      string        `json:"type"`
		Record    record.Fields `json:"record"`
		OldRecord record.Fields `json:"old_record"`
	} `json:"data"`
}

var topicSeq atomic.Uint64

// realtimeSubscription is one websocket joined to one channel topic.
type realtimeSubscription struct {
	conn   *websocket.Conn
	topic  string
	cancel context.CancelFunc

	// writeMu serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
	ref     atomic.Uint64

	once sync.Once
	done chan struct{}
}

// Subscribe opens a realtime websocket, joins a postgres_changes channel for
// collection (and filter, when given), and delivers every change to fn from
// a background goroutine until Unsubscribe or until the server closes the
// channel. fn must not call Unsubscribe: it waits for that goroutine.
func (d *Driver) Subscribe(ctx context.Context, collection string, filter *storage.Equals, fn func(storage.Change)) (storage.Subscription, error) {
	if err := storage.ValidateField(collection); err != nil {
		return nil, storage.Rejected("subscribe", collection, "", err.Error())
	}

	cf := changeFilter{Event: "*", Schema: d.schema, Table: collection}
	if filter != nil {
		if err := storage.ValidateField(filter.Field); err != nil {
			return nil, storage.Rejected("subscribe", collection, "", err.Error())
		}
		cf.Filter = filter.Field + "=eq." + cast.ToString(storage.Normalize(filter.Value))
	}

	wsURL, err := d.realtimeURL()
	if err != nil {
		return nil, storage.Transient("subscribe", collection, err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, storage.Transient("subscribe", collection, fmt.Errorf("dialing realtime: %w", err))
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &realtimeSubscription{
		conn:   conn,
		topic:  "realtime:yearbook-" + collection + "-" + strconv.FormatUint(topicSeq.Add(1), 10),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	join := joinPayload{
		Config:      joinConfig{PostgresChanges: []changeFilter{cf}},
		AccessToken: d.key,
	}
	if err := sub.send(sub.topic, eventJoin, join); err != nil {
		cancel()
		conn.Close()
		return nil, storage.Transient("subscribe", collection, fmt.Errorf("joining channel: %w", err))
	}

	go sub.heartbeat(subCtx, d.heartbeat)
	go sub.read(collection, fn, d)

	d.logger.Debug("subscribed to realtime changes",
		"collection", collection,
		"topic", sub.topic,
		"filter", cf.Filter,
	)

	return sub, nil
}

// realtimeURL turns the http(s) endpoint into the realtime ws(s) endpoint.
func (d *Driver) realtimeURL() (string, error) {
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + realtimePath
	q := url.Values{}
	q.Set("apikey", d.key)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *realtimeSubscription) send(topic, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ref := strconv.FormatUint(s.ref.Add(1), 10)
	frame := envelope{Topic: topic, Event: event, Payload: raw, Ref: &ref}
	if event == eventJoin {
		frame.JoinRef = &ref
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(frame)
}

func (s *realtimeSubscription) heartbeat(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.send("phoenix", eventHeartbeat, struct{}{}); err != nil {
				return
			}
		}
	}
}

// read delivers changes until the connection or channel ends, then stops
// the heartbeat and closes the socket.
func (s *realtimeSubscription) read(collection string, fn func(storage.Change), d *Driver) {
	defer close(s.done)
	defer s.conn.Close()
	defer s.cancel()

	for {
		var frame envelope
		if err := s.conn.ReadJSON(&frame); err != nil {
			if !errors.Is(err, net.ErrClosed) && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				d.logger.Debug("realtime connection ended", "topic", s.topic, "error", err)
			}
			return
		}

		if frame.Topic != s.topic {
			continue
		}

		switch frame.Event {
		case eventReply:
			var reply replyPayload
			if err := json.Unmarshal(frame.Payload, &reply); err == nil && reply.Status != "ok" {
				d.logger.Warn("realtime join refused",
					"topic", s.topic,
					"status", reply.Status,
					"response", string(reply.Response),
				)
			}

		case eventPostgresChanges:
			var change changePayload
			if err := json.Unmarshal(frame.Payload, &change); err != nil {
				d.logger.Warn("dropping undecodable realtime change", "topic", s.topic, "error", err)
				continue
			}

			c := storage.Change{
				Type:       storage.ChangeType(change.Data.Type),
				Collection: collection,
				Record:     change.Data.Record,
			}
			if c.Type == storage.ChangeDelete {
				c.Record = change.Data.OldRecord
			}
			fn(c)

		case eventError, eventClose:
			d.logger.Debug("realtime channel closed by server", "topic", s.topic, "event", frame.Event)
			return
		}
	}
}

// Unsubscribe leaves the channel and closes the websocket.
func (s *realtimeSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		_ = s.send(s.topic, eventLeave, struct{}{})

		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()

		if cerr := s.conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
		<-s.done
	})
	return err
}

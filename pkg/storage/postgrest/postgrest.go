// Package postgrest is a remote backing of the storage duality layer that
// speaks the PostgREST dialect used by Supabase's REST endpoint, with live
// updates delivered over the Supabase Realtime websocket.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

const restPath = "/rest/v1"

// Config holds configuration for the PostgREST driver.
type Config struct {
	// URL is the project endpoint, e.g. "https://abc.supabase.co".
	URL string

	// Key is the access key sent as apikey and bearer token.
	Key string

	// Schema is the exposed database schema. Defaults to "public".
	Schema string

	// HTTPClient overrides the default client. The driver imposes no timeout
	// of its own.
	HTTPClient *http.Client

	// HeartbeatInterval is the realtime keep-alive period. Defaults to 25s.
	HeartbeatInterval time.Duration
}

// Driver implements storage.Driver against a PostgREST endpoint.
type Driver struct {
	baseURL    string
	restURL    string
	key        string
	schema     string
	heartbeat  time.Duration
	httpClient *http.Client
	logger     *slog.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewDriver creates a PostgREST driver. No request is made until first use.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("postgrest URL is required")
	}
	if c.Key == "" {
		return nil, fmt.Errorf("postgrest key is required")
	}

	base := strings.TrimRight(c.URL, "/")

	d := &Driver{
		baseURL:    base,
		restURL:    base + restPath,
		key:        c.Key,
		schema:     c.Schema,
		heartbeat:  c.HeartbeatInterval,
		httpClient: c.HTTPClient,
		logger:     logger,
		now:        time.Now,
	}
	if d.schema == "" {
		d.schema = "public"
	}
	if d.heartbeat == 0 {
		d.heartbeat = 25 * time.Second
	}
	if d.httpClient == nil {
		d.httpClient = &http.Client{}
	}

	return d, nil
}

// apiError is the structured error body PostgREST returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Query fetches rows with at most one eq filter and one order clause.
func (d *Driver) Query(ctx context.Context, collection string, q storage.Query) ([]record.Fields, error) {
	if err := q.Validate(); err != nil {
		return nil, storage.Rejected("query", collection, "", err.Error())
	}

	params := url.Values{}
	params.Set("select", "*")
	if q.Equals != nil {
		params.Set(q.Equals.Field, filterValue(q.Equals.Value))
	}
	params.Set("order", orderClause(q.Order()))

	var rows []record.Fields
	if err := d.do(ctx, "query", collection, http.MethodGet, params, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert posts the record and returns the representation the backend
// stored, including its assigned id.
func (d *Driver) Insert(ctx context.Context, collection string, fields record.Fields) (record.Fields, error) {
	body := fields.Clone()
	delete(body, record.FieldID)
	if body.CreatedAt() == "" {
		body[record.FieldCreatedAt] = record.FormatTime(d.now())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, storage.Transient("insert", collection, fmt.Errorf("marshaling record: %w", err))
	}

	var rows []record.Fields
	if err := d.do(ctx, "insert", collection, http.MethodPost, nil, payload, &rows); err != nil {
		return nil, err
	}

	if len(rows) != 1 {
		return nil, storage.Transient("insert", collection, fmt.Errorf("expected 1 row in representation, got %d", len(rows)))
	}
	return rows[0], nil
}

// DeleteByID deletes by id, asking for the deleted representation to learn
// whether anything was removed.
func (d *Driver) DeleteByID(ctx context.Context, collection, id string) (bool, error) {
	params := url.Values{}
	params.Set(record.FieldID, "eq."+id)

	var rows []record.Fields
	if err := d.do(ctx, "delete", collection, http.MethodDelete, params, nil, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Backing reports storage.BackingRemote.
func (d *Driver) Backing() storage.Backing {
	return storage.BackingRemote
}

// Close releases idle HTTP connections.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func (d *Driver) do(ctx context.Context, op, collection, method string, params url.Values, body []byte, out any) error {
	if err := storage.ValidateField(collection); err != nil {
		return storage.Rejected(op, collection, "", err.Error())
	}

	target := d.restURL + "/" + collection
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return storage.Transient(op, collection, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("apikey", d.key)
	req.Header.Set("Authorization", "Bearer "+d.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Profile", d.schema)
	if method != http.MethodGet {
		req.Header.Set("Content-Profile", d.schema)
		req.Header.Set("Prefer", "return=representation")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return storage.Transient(op, collection, fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.Transient(op, collection, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			d.logger.Debug("postgrest rejected request",
				"op", op,
				"collection", collection,
				"status", resp.StatusCode,
				"code", apiErr.Code,
			)
			return storage.Rejected(op, collection, apiErr.Code, apiErr.Message)
		}
		return storage.Transient(op, collection, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return storage.Transient(op, collection, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// filterValue renders an equality filter in PostgREST syntax.
func filterValue(v any) string {
	if v == nil {
		return "is.null"
	}
	return "eq." + cast.ToString(storage.Normalize(v))
}

// orderClause keeps nulls lowest in both directions. Ties break on id so
// equal keys come back in the same order on every call.
func orderClause(o storage.OrderBy) string {
	if o.Field == record.FieldID {
		if o.Ascending {
			return "id.asc"
		}
		return "id.desc"
	}
	if o.Ascending {
		return o.Field + ".asc.nullsfirst,id.asc"
	}
	return o.Field + ".desc.nullslast,id.asc"
}

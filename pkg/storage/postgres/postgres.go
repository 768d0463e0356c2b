// Package postgres is a remote backing of the storage duality layer over a
// direct PostgreSQL connection. Each collection is a table of jsonb documents
// keyed by a backend-assigned id; live updates arrive through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cast"

	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

// NotifyChannel is the LISTEN/NOTIFY channel row triggers publish on.
const NotifyChannel = "yearbook_changes"

// notifyFunction publishes a compact change payload. Documents too large for
// a NOTIFY payload are reduced to their id.
const notifyFunction = `
CREATE OR REPLACE FUNCTION yearbook_notify() RETURNS trigger AS $$
DECLARE
	row_id text;
	row_doc jsonb;
BEGIN
	IF TG_OP = 'DELETE' THEN
		row_id := OLD.id; row_doc := OLD.doc;
	ELSE
		row_id := NEW.id; row_doc := NEW.doc;
	END IF;
	IF octet_length(row_doc::text) > 7000 THEN
		row_doc := '{}'::jsonb;
	END IF;
	PERFORM pg_notify('` + NotifyChannel + `', json_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', row_doc || jsonb_build_object('id', row_id)
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql`

// Config holds configuration for the PostgreSQL driver.
type Config struct {
	// DSN is a connection URI, e.g. "postgres://yearbook@db.example.com:5432/yearbook".
	DSN string

	// Password is the remote access key. It overrides any password in DSN.
	Password string
}

// Driver implements storage.Driver using a pgx pool.
type Driver struct {
	pool    *pgxpool.Pool
	builder *entsql.DialectBuilder
	logger  *slog.Logger

	// ensured tracks collections whose table and trigger exist
	ensured sync.Map

	// now is swappable for tests
	now func() time.Time
}

// NewDriver connects to PostgreSQL and installs the notify function.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	cfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	if c.Password != "" {
		cfg.ConnConfig.Password = c.Password
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify the connection is reachable
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, notifyFunction); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to install notify function: %w", err)
	}

	return &Driver{
		pool:    pool,
		builder: entsql.Dialect(dialect.Postgres),
		logger:  logger,
		now:     time.Now,
	}, nil
}

// ensureCollection creates the collection's table and change trigger once
// per process.
func (d *Driver) ensureCollection(ctx context.Context, op, collection string) error {
	if err := storage.ValidateField(collection); err != nil {
		return storage.Rejected(op, collection, "", err.Error())
	}
	if _, ok := d.ensured.Load(collection); ok {
		return nil
	}

	create, args := d.builder.CreateTable(collection).
		IfNotExists().
		Columns(
			entsql.Column("id").Type("text").Attr("PRIMARY KEY DEFAULT gen_random_uuid()::text"),
			entsql.Column("doc").Type("jsonb").Attr("NOT NULL"),
		).
		Query()
	if _, err := d.pool.Exec(ctx, create, args...); err != nil {
		return classify(op, collection, fmt.Errorf("creating table: %w", err))
	}

	trigger := fmt.Sprintf(
		`CREATE OR REPLACE TRIGGER yearbook_notify_%[1]s AFTER INSERT OR UPDATE OR DELETE ON %[1]q FOR EACH ROW EXECUTE FUNCTION yearbook_notify()`,
		collection,
	)
	if _, err := d.pool.Exec(ctx, trigger); err != nil {
		return classify(op, collection, fmt.Errorf("creating trigger: %w", err))
	}

	d.ensured.Store(collection, struct{}{})
	return nil
}

// Query selects documents with an optional equality predicate on a document
// field (or the id column) and one order clause.
func (d *Driver) Query(ctx context.Context, collection string, q storage.Query) ([]record.Fields, error) {
	if err := q.Validate(); err != nil {
		return nil, storage.Rejected("query", collection, "", err.Error())
	}
	if err := d.ensureCollection(ctx, "query", collection); err != nil {
		return nil, err
	}

	sel := d.builder.Select("id", "doc").From(d.builder.Table(collection))
	if q.Equals != nil {
		sel.Where(equalsPredicate(q.Equals))
	}
	sel.OrderExpr(orderExpr(q.Order()))

	query, args := sel.Query()
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("query", collection, err)
	}
	defer rows.Close()

	var result []record.Fields
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, classify("query", collection, err)
		}

		fields, err := decodeDoc(id, doc)
		if err != nil {
			return nil, storage.Transient("query", collection, err)
		}
		result = append(result, fields)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", collection, err)
	}

	return result, nil
}

// Insert stores the document and returns it with the backend-assigned id.
func (d *Driver) Insert(ctx context.Context, collection string, fields record.Fields) (record.Fields, error) {
	if err := d.ensureCollection(ctx, "insert", collection); err != nil {
		return nil, err
	}

	doc := fields.Clone()
	delete(doc, record.FieldID)
	if doc.CreatedAt() == "" {
		doc[record.FieldCreatedAt] = record.FormatTime(d.now())
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, storage.Transient("insert", collection, fmt.Errorf("marshaling record: %w", err))
	}

	query, args := d.builder.Insert(collection).
		Columns("doc").
		Values(string(payload)).
		Returning("id").
		Query()

	var id string
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return nil, classify("insert", collection, err)
	}

	doc[record.FieldID] = id
	return doc, nil
}

// DeleteByID deletes by primary key.
func (d *Driver) DeleteByID(ctx context.Context, collection, id string) (bool, error) {
	if err := d.ensureCollection(ctx, "delete", collection); err != nil {
		return false, err
	}

	query, args := d.builder.Delete(collection).
		Where(entsql.EQ("id", id)).
		Query()

	tag, err := d.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, classify("delete", collection, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Backing reports storage.BackingRemote.
func (d *Driver) Backing() storage.Backing {
	return storage.BackingRemote
}

// Close closes the pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}

func equalsPredicate(eq *storage.Equals) *entsql.Predicate {
	if eq.Field == record.FieldID {
		return entsql.EQ("id", cast.ToString(storage.Normalize(eq.Value)))
	}

	return entsql.P(func(b *entsql.Builder) {
		if eq.Value == nil {
			b.WriteString("(doc->").Arg(eq.Field).WriteString(" IS NULL OR doc->").Arg(eq.Field).WriteString(" = 'null'::jsonb)")
			return
		}
		b.WriteString("doc->>").Arg(eq.Field).WriteString(" = ").Arg(cast.ToString(storage.Normalize(eq.Value)))
	})
}

// orderExpr keeps nulls lowest in both directions and breaks ties on id.
// The field name has already passed storage.ValidateField.
func orderExpr(o storage.OrderBy) entsql.Querier {
	if o.Field == record.FieldID {
		if o.Ascending {
			return entsql.Expr("id ASC")
		}
		return entsql.Expr("id DESC")
	}

	if o.Ascending {
		return entsql.Expr(fmt.Sprintf("doc->'%s' ASC NULLS FIRST, id ASC", o.Field))
	}
	return entsql.Expr(fmt.Sprintf("doc->'%s' DESC NULLS LAST, id ASC", o.Field))
}

func decodeDoc(id string, doc []byte) (record.Fields, error) {
	var fields record.Fields
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", id, err)
	}
	if fields == nil {
		fields = record.Fields{}
	}
	fields[record.FieldID] = id
	return fields, nil
}

// classify maps server-reported errors to rejections and everything else to
// transient failures.
func classify(op, collection string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return storage.Rejected(op, collection, pgErr.Code, pgErr.Message)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Rejected(op, collection, "", "no row returned")
	}
	return storage.Transient(op, collection, err)
}

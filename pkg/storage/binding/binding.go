// Package binding decides, once per process, which backing the storage
// duality layer talks to.
package binding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/papercomputeco/yearbook/pkg/kv"
	"github.com/papercomputeco/yearbook/pkg/kv/inmemory"
	"github.com/papercomputeco/yearbook/pkg/kv/sqlite"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/local"
	"github.com/papercomputeco/yearbook/pkg/storage/postgres"
	"github.com/papercomputeco/yearbook/pkg/storage/postgrest"
)

// Options are the inputs of the binding decision.
type Options struct {
	// RemoteURL is the remote endpoint: http(s) for a PostgREST endpoint,
	// postgres(ql) for a direct database connection.
	RemoteURL string

	// RemoteKey is the remote access key.
	RemoteKey string

	// LocalPath is the SQLite file backing the local store. Empty, or
	// Ephemeral, keeps local records in memory.
	LocalPath string

	// LocalQuota caps the serialized size of one collection in bytes.
	// Zero disables the cap.
	LocalQuota int64

	// Ephemeral forces an in-memory local store.
	Ephemeral bool

	// HTTPClient is used by the PostgREST backing. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Binding is the immutable result of the binding decision. It is shared by
// reference; the process never switches backing after New returns.
type Binding struct {
	driver storage.Driver
	reason string
}

// Scheme classifies a remote endpoint URL.
type Scheme string

const (
	SchemeNone     Scheme = ""
	SchemeREST     Scheme = "rest"
	SchemePostgres Scheme = "postgres"
)

// ParseScheme reports which remote backing url addresses, or SchemeNone
// when url has no recognized scheme prefix.
func ParseScheme(url string) Scheme {
	lower := strings.ToLower(strings.TrimSpace(url))
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return SchemeREST
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return SchemePostgres
	}
	return SchemeNone
}

// Decide applies the binding rule without opening anything: remote iff the
// URL is present with a recognized scheme and the key is present.
func Decide(o Options) (storage.Backing, string) {
	switch {
	case strings.TrimSpace(o.RemoteURL) == "":
		return storage.BackingLocal, "no remote URL configured"
	case ParseScheme(o.RemoteURL) == SchemeNone:
		return storage.BackingLocal, "remote URL has no recognized scheme"
	case strings.TrimSpace(o.RemoteKey) == "":
		return storage.BackingLocal, "no remote access key configured"
	}
	return storage.BackingRemote, "remote configuration is valid"
}

// New makes the binding decision and opens the chosen driver. A remote
// driver that fails to open is an error, not a fallback to local.
func New(ctx context.Context, o Options) (*Binding, error) {
	log := o.Logger
	if log == nil {
		log = logger.Nop()
	}

	backing, reason := Decide(o)

	var (
		driver storage.Driver
		err    error
	)
	if backing == storage.BackingRemote {
		driver, err = openRemote(ctx, o, log)
	} else {
		driver, err = openLocal(ctx, o, log)
	}
	if err != nil {
		return nil, err
	}

	log.Info("storage bound", "backing", backing, "reason", reason)
	return &Binding{driver: driver, reason: reason}, nil
}

func openRemote(ctx context.Context, o Options, log *slog.Logger) (storage.Driver, error) {
	if ParseScheme(o.RemoteURL) == SchemePostgres {
		d, err := postgres.NewDriver(ctx, postgres.Config{DSN: o.RemoteURL, Password: o.RemoteKey}, log)
		if err != nil {
			return nil, fmt.Errorf("opening postgres backing: %w", err)
		}
		return d, nil
	}

	d, err := postgrest.NewDriver(postgrest.Config{
		URL:        o.RemoteURL,
		Key:        o.RemoteKey,
		HTTPClient: o.HTTPClient,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("opening rest backing: %w", err)
	}
	return d, nil
}

func openLocal(ctx context.Context, o Options, log *slog.Logger) (storage.Driver, error) {
	var (
		store kv.Store
		err   error
	)
	if o.Ephemeral || o.LocalPath == "" {
		store = inmemory.NewStore(inmemory.WithQuota(o.LocalQuota))
	} else {
		store, err = sqlite.NewStore(ctx, o.LocalPath, sqlite.WithQuota(o.LocalQuota))
		if err != nil {
			return nil, fmt.Errorf("opening local store: %w", err)
		}
	}
	return local.NewDriver(store, log), nil
}

// Driver returns the bound driver.
func (b *Binding) Driver() storage.Driver {
	return b.driver
}

// Backing reports the bound side.
func (b *Binding) Backing() storage.Backing {
	return b.driver.Backing()
}

// Reason explains the binding decision.
func (b *Binding) Reason() string {
	return b.reason
}

// Memories returns the typed memories collection.
func (b *Binding) Memories() *storage.Collection[record.Memory] {
	return storage.NewCollection[record.Memory](b.driver, record.Memories)
}

// Letters returns the typed letters collection.
func (b *Binding) Letters() *storage.Collection[record.Letter] {
	return storage.NewCollection[record.Letter](b.driver, record.Letters)
}

// Close closes the bound driver.
func (b *Binding) Close() error {
	return b.driver.Close()
}

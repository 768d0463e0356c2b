// Package wire builds the journal service the yearbook commands share from
// the layered configuration.
package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/dotdir"
	"github.com/papercomputeco/yearbook/pkg/eventstream"
	"github.com/papercomputeco/yearbook/pkg/eventstream/dispatch"
	"github.com/papercomputeco/yearbook/pkg/eventstream/kafka"
	"github.com/papercomputeco/yearbook/pkg/eventstream/nop"
	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/media/telegram"
	"github.com/papercomputeco/yearbook/pkg/storage/binding"
)

const (
	// resolveCacheSize bounds the resolver's URL cache.
	resolveCacheSize = 1024

	// localStoreFile is the default local store inside the .yearbook/ directory.
	localStoreFile = "yearbook.db"

	// ServeLogFile is the service log appended to inside the .yearbook/
	// directory.
	ServeLogFile = "serve.log"

	// FlagEphemeral keeps the local store in memory for one invocation.
	FlagEphemeral = "ephemeral"
)

// JournalFlags are the registry flags every command that opens a journal
// binds.
var JournalFlags = []string{
	config.FlagRemoteURL,
	config.FlagRemoteKey,
	config.FlagLocalPath,
	config.FlagLocalQuota,
	config.FlagBotToken,
	config.FlagChatID,
	config.FlagMediaAPIBase,
	config.FlagResolveTTL,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

// AddJournalFlags registers JournalFlags and --ephemeral on cmd. Values only
// take effect through LoadConfig, so the targets are throwaway.
func AddJournalFlags(cmd *cobra.Command) {
	for _, key := range JournalFlags {
		if key == config.FlagLocalQuota {
			config.AddInt64Flag(cmd, config.Registry, key, new(int64))
			continue
		}
		config.AddStringFlag(cmd, config.Registry, key, new(string))
	}
	cmd.Flags().Bool(FlagEphemeral, false, "Keep the local store in memory, discarding it on exit")
}

// LoadConfig layers the flags named by registryKeys over env, config file and
// defaults.
func LoadConfig(cmd *cobra.Command, registryKeys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.Registry, registryKeys)
	cfg := config.FromViper(v)

	// An empty local path is the in-memory store, so it is only left empty
	// when asked for.
	ephemeral, _ := cmd.Flags().GetBool(FlagEphemeral)
	switch {
	case ephemeral:
		cfg.Storage.LocalPath = ""
	case cfg.Storage.LocalPath == "":
		dir, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, err
		}
		cfg.Storage.LocalPath = filepath.Join(dir, localStoreFile)
	}

	return cfg, nil
}

// NewLogger builds the command logger from the persistent debug flag.
func NewLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(logger.IsTerminal()),
		logger.WithWriter(cmd.ErrOrStderr()),
	)
}

// NewServiceLogger builds the logger for a long-running command: the command
// logger plus JSON lines appended to logName in the .yearbook/ directory.
// The returned func closes the log file.
func NewServiceLogger(cmd *cobra.Command, logName string) (*slog.Logger, func() error, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	dir, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, nil, err
	}

	path := filepath.Join(dir, logName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	debug, _ := cmd.Flags().GetBool("debug")

	// Off a terminal both sinks get the same JSON lines.
	if !logger.IsTerminal() {
		return logger.New(
			logger.WithDebug(debug),
			logger.WithJSON(true),
			logger.WithSource(debug),
			logger.WithWriters(cmd.ErrOrStderr(), f),
		), f.Close, nil
	}

	file := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithSource(debug),
		logger.WithWriter(f),
	)
	return logger.Multi(NewLogger(cmd), file), f.Close, nil
}

// Journal is an opened journal service and everything it holds open.
type Journal struct {
	Service *journal.Service
	Binding *binding.Binding

	events *dispatch.Pool
}

// OpenJournal binds storage, connects the media provider when it is
// configured and starts the event pool.
func OpenJournal(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Journal, error) {
	ttl, err := cfg.Media.CacheTTL()
	if err != nil {
		return nil, err
	}

	publisher, err := NewPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	b, err := binding.New(ctx, binding.Options{
		RemoteURL:  cfg.Storage.RemoteURL,
		RemoteKey:  cfg.Storage.RemoteKey,
		LocalPath:  cfg.Storage.LocalPath,
		LocalQuota: cfg.Storage.LocalQuota,
		Logger:     log,
	})
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	client, err := newMediaClient(cfg.Media, log)
	if err != nil {
		_ = publisher.Close()
		_ = b.Close()
		return nil, err
	}

	// a nil *telegram.Client must not become a non-nil interface
	var (
		uploader media.Uploader
		locator  media.Locator
	)
	if client != nil {
		uploader = client
		locator = client
	}

	pool, err := dispatch.NewPool(&dispatch.Config{
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		_ = publisher.Close()
		_ = b.Close()
		return nil, fmt.Errorf("starting event pool: %w", err)
	}

	svc := journal.New(journal.Config{
		Driver:       b.Driver(),
		Pipeline:     media.NewPipeline(uploader, log),
		Resolver:     newResolver(locator, ttl, log),
		Events:       pool,
		AnnounceText: cfg.Media.AnnounceText,
		Logger:       log,
	})

	return &Journal{Service: svc, Binding: b, events: pool}, nil
}

// Close drains pending events, then releases storage.
func (j *Journal) Close() error {
	return errors.Join(j.events.Close(), j.Binding.Close())
}

// NewResolver returns a resolver over the configured media provider, or
// media.ErrNotConfigured.
func NewResolver(c config.MediaConfig, log *slog.Logger) (*media.Resolver, error) {
	ttl, err := c.CacheTTL()
	if err != nil {
		return nil, err
	}

	client, err := newMediaClient(c, log)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, media.ErrNotConfigured
	}
	return newResolver(client, ttl, log), nil
}

func newResolver(locator media.Locator, ttl time.Duration, log *slog.Logger) *media.Resolver {
	return media.NewResolver(locator, log, media.WithCache(media.NewTTLCache(resolveCacheSize, ttl)))
}

// newMediaClient returns nil, nil when the provider is not configured.
func newMediaClient(c config.MediaConfig, log *slog.Logger) (*telegram.Client, error) {
	client, err := telegram.NewClient(telegram.Config{
		Token:   c.BotToken,
		ChatID:  c.ChatID,
		APIBase: c.APIBase,
	}, log)
	if errors.Is(err, media.ErrNotConfigured) {
		log.Debug("media provider not configured")
		return nil, nil
	}
	return client, err
}

// NewPublisher returns the record event publisher named by the provider.
func NewPublisher(c config.EventsConfig) (eventstream.Publisher, error) {
	switch c.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.BrokerList(),
			Topic:   c.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider %q", c.Provider)
	}
}

// Selection resolves the year and author a command acts on: explicit flags
// win over the saved session.
func Selection(cmd *cobra.Command, year int, author string) (int, string, error) {
	if year > 0 && author != "" {
		return year, author, nil
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	session, err := dotdir.NewManager().LoadSession(configDir)
	if err != nil {
		return 0, "", err
	}

	if session != nil {
		if year <= 0 {
			year = session.Year
		}
		if author == "" {
			author = session.Author
		}
	}

	if year <= 0 {
		return 0, "", errors.New("no year selected; pass --year or run yearbook use <year>")
	}
	return year, author, nil
}

// SelectYear resolves only the year, for commands that don't attribute.
func SelectYear(cmd *cobra.Command, year int) (int, error) {
	if year > 0 {
		return year, nil
	}
	year, _, err := Selection(cmd, year, "")
	return year, err
}

// SessionAuthor returns the saved author, or "" when there is none.
func SessionAuthor(cmd *cobra.Command) string {
	configDir, _ := cmd.Flags().GetString("config-dir")
	session, err := dotdir.NewManager().LoadSession(configDir)
	if err != nil || session == nil {
		return ""
	}
	return session.Author
}

// Package servecmder provides the serve command, which runs the yearbook
// HTTP API over the bound journal.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/api"
	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/config"
)

type ServeCommander struct {
	cfg    *config.Config
	logger *slog.Logger
}

const serveLongDesc string = `Run the yearbook API server.

The server binds storage once at startup: remote when a remote URL and key
are configured, local otherwise. Posting media requires the media provider
bot token and chat id. Logs are also appended as JSON lines to serve.log
in the .yearbook/ directory.

Examples:
  yearbook serve
  yearbook serve --listen :9000 --access-code hunter2
  yearbook serve --remote-url https://db.example.com --remote-key KEY`

const serveShortDesc string = "Run the yearbook API server"

var serveFlags = append([]string{
	config.FlagAPIListen,
	config.FlagAccessCode,
}, wire.JournalFlags...)

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wire.LoadConfig(cmd, serveFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeLog, err := wire.NewServiceLogger(cmd, wire.ServeLogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			cmder.logger = log
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagAPIListen, new(string))
	config.AddStringFlag(cmd, config.Registry, config.FlagAccessCode, new(string))
	wire.AddJournalFlags(cmd)

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	j, err := wire.OpenJournal(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := j.Close(); err != nil {
			c.logger.Error("closing journal", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:     c.cfg.API.Listen,
		AccessCode:     c.cfg.API.AccessCode,
		BindingReason:  j.Binding.Reason(),
		EventsProvider: c.cfg.Events.Provider,
	}, j.Service, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	c.logger.Info("starting api server",
		"api_addr", c.cfg.API.Listen,
		"backing", j.Service.Backing(),
		"media", j.Service.MediaConfigured(),
		"access_code", c.cfg.API.AccessCode != "",
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("api server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

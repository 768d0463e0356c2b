// Package watchcmder provides the watch command, which follows a year's live
// changes through the API server's event stream.
package watchcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/api"
	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/sse"
)

type WatchCommander struct {
	year int
	raw  bool

	cfg    *config.Config
	logger *slog.Logger
}

const watchLongDesc string = `Watch a year's memories change live.

Connects to a running "yearbook serve" and prints every insert, update and
delete as it happens. A server bound to local storage never reports
changes; only remote backings push them.

Examples:
  yearbook watch
  yearbook watch --year 2 --api-target http://yearbook.lan:8081
  yearbook watch --raw`

const watchShortDesc string = "Watch a year's memories change live"

var watchFlags = []string{
	config.FlagAPITarget,
	config.FlagAccessCode,
}

func NewWatchCmd() *cobra.Command {
	cmder := &WatchCommander{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wire.LoadConfig(cmd, watchFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg

			cmder.year, err = wire.SelectYear(cmd, cmder.year)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = wire.NewLogger(cmd)
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.year, "year", "y", 0, "Year to watch (defaults to the session year)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the raw event stream")
	config.AddStringFlag(cmd, config.Registry, config.FlagAPITarget, new(string))
	config.AddStringFlag(cmd, config.Registry, config.FlagAccessCode, new(string))

	return cmd
}

func (c *WatchCommander) run(cmd *cobra.Command) error {
	target := fmt.Sprintf("%s/years/%d/events", strings.TrimRight(c.cfg.Client.APITarget, "/"), c.year)

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.cfg.API.AccessCode != "" {
		req.Header.Set(api.AccessCodeHeader, c.cfg.API.AccessCode)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.cfg.Client.APITarget, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("event stream refused (status %d): %s", resp.StatusCode, body.Error)
	}

	c.logger.Debug("watching year", "year", c.year, "target", target)

	out := cmd.OutOrStdout()
	reader := sse.NewReader(resp.Body)
	if c.raw {
		reader = sse.NewTeeReader(resp.Body, out)
	}

	for {
		ev, err := reader.Next()
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("reading event stream: %w", err)
		}
		if ev == nil {
			return nil
		}
		if c.raw {
			continue
		}
		printEvent(out, ev)
	}
}

func printEvent(out io.Writer, ev *sse.Event) {
	switch ev.Type {
	case "insert", "update":
		var m record.Memory
		if err := json.Unmarshal([]byte(ev.Data), &m); err != nil {
			fmt.Fprintf(out, "  %s %s %s\n", cliui.FailMark, ev.Type, cliui.DimStyle.Render(ev.Data))
			return
		}
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(ev.Type), cliui.MemorySummary(m))
	case "delete":
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(ev.Type), cliui.IDStyle.Render(ev.ID))
	default:
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(ev.Type), cliui.DimStyle.Render(ev.Data))
	}
}

// Package statuscmder provides the status command for displaying how the
// yearbook commands are configured: storage binding, media provider, event
// stream and the selected year.
package statuscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/dotdir"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/storage/binding"
)

const statusLongDesc string = `Show the current yearbook state.

Reports which storage backing commands will bind to and why, whether the
media provider is configured, where record events go and which year and
author are selected. Nothing is opened or contacted.

Examples:
  yearbook status`

const statusShortDesc string = "Show current yearbook state"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}

	wire.AddJournalFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	session, err := dotdir.NewManager().LoadSession(configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	out := cmd.OutOrStdout()
	backing, reason := binding.Decide(binding.Options{
		RemoteURL: cfg.Storage.RemoteURL,
		RemoteKey: cfg.Storage.RemoteKey,
	})

	fmt.Fprintln(out)
	line(out, "Storage:", fmt.Sprintf("%s %s", backing, cliui.DimStyle.Render("("+reason+")")))
	if backing == storage.BackingLocal {
		path := cfg.Storage.LocalPath
		if path == "" {
			path = "in-memory"
		}
		line(out, "Local store:", path)
		if cfg.Storage.LocalQuota > 0 {
			line(out, "Quota:", fmt.Sprintf("%d bytes per collection", cfg.Storage.LocalQuota))
		}
	}

	if cfg.Media.BotToken != "" && cfg.Media.ChatID != "" {
		line(out, "Media:", "configured "+cliui.DimStyle.Render("(chat "+cfg.Media.ChatID+")"))
	} else {
		line(out, "Media:", cliui.DimStyle.Render("not configured"))
	}

	events := cfg.Events.Provider
	if events == "kafka" {
		events += " " + cliui.DimStyle.Render("("+cfg.Events.Topic+")")
	}
	line(out, "Events:", events)

	if session == nil {
		line(out, "Year:", cliui.DimStyle.Render("none selected, run yearbook use <year>"))
	} else {
		line(out, "Year:", strconv.Itoa(session.Year))
		if session.Author != "" {
			line(out, "Author:", cliui.AuthorStyle.Render(session.Author))
		}
	}

	fmt.Fprintln(out)
	return nil
}

func line(out io.Writer, key, value string) {
	fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-12s", key)), value)
}

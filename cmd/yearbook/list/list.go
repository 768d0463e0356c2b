// Package listcmder provides the list command for browsing a year's
// memories.
package listcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/logger"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
)

type ListCommander struct {
	year    int
	oldest  bool
	resolve bool

	cfg    *config.Config
	logger *slog.Logger
}

const listLongDesc string = `List a year's memories, newest first.

With --resolve every media reference is turned into a direct URL through
the media provider. References the provider no longer knows are shown as
unavailable.

Examples:
  yearbook list
  yearbook list --year 2 --oldest
  yearbook list --resolve`

const listShortDesc string = "List a year's memories"

func NewListCmd() *cobra.Command {
	cmder := &ListCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
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

	cmd.Flags().IntVarP(&cmder.year, "year", "y", 0, "Year to list (defaults to the session year)")
	cmd.Flags().BoolVar(&cmder.oldest, "oldest", false, "List oldest first")
	cmd.Flags().BoolVar(&cmder.resolve, "resolve", false, "Resolve media references to URLs")
	wire.AddJournalFlags(cmd)

	return cmd
}

func (c *ListCommander) run(cmd *cobra.Command) error {
	j, err := wire.OpenJournal(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer j.Close()

	order := storage.Desc(record.FieldCreatedAt)
	if c.oldest {
		order = storage.Asc(record.FieldCreatedAt)
	}

	memories, err := j.Service.List(cmd.Context(), storage.Query{
		Equals:  storage.Eq(record.FieldYearNumber, c.year),
		OrderBy: order,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(memories) == 0 {
		fmt.Fprintf(out, "  %s No memories in year %d.\n", cliui.DimStyle.Render("●"), c.year)
		return nil
	}

	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render(fmt.Sprintf("Year %d:", c.year)),
		cliui.DimStyle.Render(fmt.Sprintf("%d memories (%s)", len(memories), j.Service.Backing())),
	)

	for i := range memories {
		if err := c.printMemory(cmd, out, j.Service, &memories[i]); err != nil {
			return err
		}
	}

	return nil
}

// mediaResolver is the part of the journal list needs for --resolve.
type mediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, bool, error)
	ResolveMedia(ctx context.Context, m *record.Memory) ([]string, error)
}

func (c *ListCommander) printMemory(cmd *cobra.Command, out io.Writer, resolver mediaResolver, m *record.Memory) error {
	fmt.Fprintf(out, "  %s\n", cliui.MemoryHeader(*m))

	// Older memories can carry a bare provider file id as their content.
	switch {
	case m.Content == "":
	case c.resolve && media.IsFileRef(m.Content):
		url, ok, err := resolver.Resolve(cmd.Context(), m.Content)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "    %s %s\n", cliui.IDStyle.Render(m.Content), resolvedURL(url, ok))
	default:
		fmt.Fprintf(out, "%s\n", renderContent(m.Content))
	}

	if m.ExternalURL != nil && *m.ExternalURL != "" {
		fmt.Fprintf(out, "    %s %s\n", cliui.KeyStyle.Render("link"), cliui.ValueStyle.Render(*m.ExternalURL))
	}

	if c.resolve && len(m.MediaRefs) > 0 {
		urls, err := resolver.ResolveMedia(cmd.Context(), m)
		if err != nil {
			return err
		}
		for i, ref := range m.MediaRefs {
			fmt.Fprintf(out, "    %s %s\n", cliui.IDStyle.Render(ref), resolvedURL(urls[i], urls[i] != ""))
		}
	}

	fmt.Fprintln(out)
	return nil
}

func resolvedURL(url string, ok bool) string {
	if !ok {
		return cliui.DimStyle.Render("<unavailable>")
	}
	return cliui.ValueStyle.Render(url)
}

// renderContent indents content, rendering it as markdown on a terminal.
func renderContent(content string) string {
	if logger.IsTerminal() {
		if rendered, err := cliui.RenderMarkdown(content); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}

	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// Package postcmder provides the post command, which uploads files and a
// caption as one memory.
package postcmder

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/media"
)

type PostCommander struct {
	content   string
	author    string
	link      string
	year      int
	createdAt string

	cfg    *config.Config
	logger *slog.Logger
}

const postLongDesc string = `Post a memory.

Files are uploaded to the media provider as a single post (an album when
there are several) before the memory is stored. Without files the memory is
text only. The year and author default to the ones chosen with
"yearbook use".

Examples:
  yearbook post -m "first day of school"
  yearbook post beach.jpg sunset.jpg -m "summer" --author sam
  yearbook post clip.mp4 --year 3 --created-at 2024-06-01T12:00:00Z`

const postShortDesc string = "Post a memory"

func NewPostCmd() *cobra.Command {
	cmder := &PostCommander{}

	cmd := &cobra.Command{
		Use:   "post [files...]",
		Short: postShortDesc,
		Long:  postLongDesc,
		Args:  cobra.MaximumNArgs(journal.MaxFiles),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg

			cmder.year, cmder.author, err = wire.Selection(cmd, cmder.year, cmder.author)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = wire.NewLogger(cmd)
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.content, "message", "m", "", "Memory text, used as the caption when posting files")
	cmd.Flags().StringVar(&cmder.author, "author", "", "Author of the memory (defaults to the session author)")
	cmd.Flags().StringVar(&cmder.link, "link", "", "External link attached to the memory")
	cmd.Flags().IntVarP(&cmder.year, "year", "y", 0, "Year the memory belongs to (defaults to the session year)")
	cmd.Flags().StringVar(&cmder.createdAt, "created-at", "", "Backdate the memory (RFC 3339)")
	wire.AddJournalFlags(cmd)

	return cmd
}

func (c *PostCommander) run(cmd *cobra.Command, paths []string) error {
	files := make([]media.File, 0, len(paths))
	for _, p := range paths {
		f, err := media.FileFromPath(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	draft := journal.Draft{
		Content:     c.content,
		Author:      c.author,
		ExternalURL: c.link,
		YearNumber:  c.year,
		CreatedAt:   c.createdAt,
		Files:       files,
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	j, err := wire.OpenJournal(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	msg := "Saving memory"
	if len(files) > 0 {
		msg = fmt.Sprintf("Uploading %d file(s)", len(files))
	}

	var posted string
	err = cliui.Step(out, msg, func() error {
		m, err := j.Service.Post(cmd.Context(), draft)
		if err != nil {
			return err
		}
		posted = cliui.MemoryHeader(*m)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s\n\n", posted)
	return nil
}

// Package deletecmder provides the delete command for removing a record.
package deletecmder

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/config"
	"github.com/papercomputeco/yearbook/pkg/record"
)

type DeleteCommander struct {
	collection string

	cfg    *config.Config
	logger *slog.Logger
}

const deleteLongDesc string = `Delete a record by id.

Deleting an id that does not exist is not an error; the command reports
that nothing was removed. Uploaded media stays with the media provider.

Examples:
  yearbook delete 1f0c6a52-0b0e-4c1e-9f57-2f3c4c1a9d11
  yearbook delete 7c1e... --collection letters`

const deleteShortDesc string = "Delete a record"

func NewDeleteCmd() *cobra.Command {
	cmder := &DeleteCommander{}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: deleteShortDesc,
		Long:  deleteLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.collection != record.Memories && cmder.collection != record.Letters {
				return fmt.Errorf("unknown collection %q", cmder.collection)
			}

			cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = wire.NewLogger(cmd)
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.collection, "collection", "c", record.Memories, "Collection to delete from (memories, letters)")
	wire.AddJournalFlags(cmd)

	return cmd
}

func (c *DeleteCommander) run(cmd *cobra.Command, id string) error {
	j, err := wire.OpenJournal(cmd.Context(), c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer j.Close()

	removed, err := j.Service.DeleteRecord(cmd.Context(), c.collection, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !removed {
		fmt.Fprintf(out, "  %s Nothing to delete: %s\n", cliui.DimStyle.Render("●"), cliui.IDStyle.Render(id))
		return nil
	}

	fmt.Fprintf(out, "  %s Deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(id))
	return nil
}

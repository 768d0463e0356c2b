package letterscmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
)

const listShortDesc string = "List letters"

func newListCmd() *cobra.Command {
	var pending, delivered bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pending && delivered {
				return errors.New("--pending and --delivered are mutually exclusive")
			}

			var filter *bool
			switch {
			case pending:
				filter = new(bool)
			case delivered:
				v := true
				filter = &v
			}
			return runList(cmd, filter)
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only letters not yet delivered")
	cmd.Flags().BoolVar(&delivered, "delivered", false, "Only delivered letters")
	wire.AddJournalFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, delivered *bool) error {
	cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	j, err := wire.OpenJournal(cmd.Context(), cfg, wire.NewLogger(cmd))
	if err != nil {
		return err
	}
	defer j.Close()

	letters, err := j.Service.ListLetters(cmd.Context(), delivered)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(letters) == 0 {
		fmt.Fprintf(out, "  %s No letters.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	for _, l := range letters {
		fmt.Fprintf(out, "  %s\n", cliui.LetterHeader(l))
		fmt.Fprintf(out, "    %s\n\n", l.Message)
	}
	return nil
}

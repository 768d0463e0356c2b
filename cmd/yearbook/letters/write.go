package letterscmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/journal"
)

const writeShortDesc string = "Write a letter"

func newWriteCmd() *cobra.Command {
	draft := journal.LetterDraft{}

	cmd := &cobra.Command{
		Use:   "write",
		Short: writeShortDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if draft.Sender == "" {
				draft.Sender = wire.SessionAuthor(cmd)
			}
			return runWrite(cmd, draft)
		},
	}

	cmd.Flags().StringVarP(&draft.Message, "message", "m", "", "Letter body")
	cmd.Flags().StringVar(&draft.Recipient, "to", "", "Recipient")
	cmd.Flags().StringVar(&draft.Sender, "from", "", "Sender (defaults to the session author)")
	cmd.Flags().StringVar(&draft.ScheduledFor, "at", "", "Deliver at this time (RFC 3339)")
	wire.AddJournalFlags(cmd)

	return cmd
}

func runWrite(cmd *cobra.Command, draft journal.LetterDraft) error {
	if draft.Message == "" || draft.Recipient == "" {
		return errors.New("--message and --to are required")
	}

	cfg, err := wire.LoadConfig(cmd, wire.JournalFlags)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	j, err := wire.OpenJournal(cmd.Context(), cfg, wire.NewLogger(cmd))
	if err != nil {
		return err
	}
	defer j.Close()

	l, err := j.Service.WriteLetter(cmd.Context(), draft)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", cliui.SuccessMark, cliui.LetterHeader(*l))
	return nil
}

// Package letterscmder provides the letters command for writing and reading
// letters between yearbook members.
package letterscmder

import (
	"github.com/spf13/cobra"
)

const lettersLongDesc string = `Write and read letters.

A letter is delivered as soon as it is written unless it is scheduled for
a later time, in which case it stays pending.

Examples:
  yearbook letters write --to ari -m "see you next year"
  yearbook letters write --to ari -m "open me later" --at 2026-06-01T00:00:00Z
  yearbook letters list --pending`

const lettersShortDesc string = "Write and read letters"

func NewLettersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "letters",
		Short: lettersShortDesc,
		Long:  lettersLongDesc,
	}

	cmd.AddCommand(newWriteCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

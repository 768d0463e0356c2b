// Package usecmder provides the use command, which selects the year and
// author later commands default to.
package usecmder

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/pkg/cliui"
	"github.com/papercomputeco/yearbook/pkg/dotdir"
)

type UseCommander struct {
	author string
	clear  bool
}

const useLongDesc string = `Select the year (and optionally the author) that post, list and
watch use when no --year or --author is given.

The selection is saved in session.json in the .yearbook/ directory.

Examples:
  yearbook use 2
  yearbook use 2 --author sam
  yearbook use --clear`

const useShortDesc string = "Select the default year and author"

func NewUseCmd() *cobra.Command {
	cmder := &UseCommander{}

	cmd := &cobra.Command{
		Use:   "use [year]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, args, configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.author, "author", "", "Author attributed on posts")
	cmd.Flags().BoolVar(&cmder.clear, "clear", false, "Forget the saved selection")

	return cmd
}

func (c *UseCommander) run(cmd *cobra.Command, args []string, configDir string) error {
	manager := dotdir.NewManager()
	out := cmd.OutOrStdout()

	if c.clear {
		if err := manager.ClearSession(configDir); err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s Selection cleared\n", cliui.SuccessMark)
		return nil
	}

	if len(args) == 0 {
		return errors.New("a year is required unless --clear is given")
	}

	year, err := strconv.Atoi(args[0])
	if err != nil || year <= 0 {
		return fmt.Errorf("year must be a positive number, got %q", args[0])
	}

	if err := manager.SaveSession(&dotdir.Session{Year: year, Author: c.author}, configDir); err != nil {
		return err
	}

	msg := fmt.Sprintf("Using year %s", cliui.KeyStyle.Render(args[0]))
	if c.author != "" {
		msg += " as " + cliui.AuthorStyle.Render(c.author)
	}
	fmt.Fprintf(out, "  %s %s\n", cliui.SuccessMark, msg)
	return nil
}

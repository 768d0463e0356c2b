// Package yearbookcmder
package yearbookcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/yearbook/cmd/yearbook/config"
	deletecmder "github.com/papercomputeco/yearbook/cmd/yearbook/delete"
	letterscmder "github.com/papercomputeco/yearbook/cmd/yearbook/letters"
	listcmder "github.com/papercomputeco/yearbook/cmd/yearbook/list"
	postcmder "github.com/papercomputeco/yearbook/cmd/yearbook/post"
	resolvecmder "github.com/papercomputeco/yearbook/cmd/yearbook/resolve"
	servecmder "github.com/papercomputeco/yearbook/cmd/yearbook/serve"
	statuscmder "github.com/papercomputeco/yearbook/cmd/yearbook/status"
	usecmder "github.com/papercomputeco/yearbook/cmd/yearbook/use"
	versioncmder "github.com/papercomputeco/yearbook/cmd/yearbook/version"
	watchcmder "github.com/papercomputeco/yearbook/cmd/yearbook/watch"
)

const yearbookLongDesc string = `Yearbook keeps a shared journal of memories and letters.

Memories are stored remotely when a remote URL and access key are
configured, locally otherwise. Photos and videos are hosted by the media
provider and referenced from each memory.

Get started:
  yearbook use 1 --author sam      Select the year and author
  yearbook post photo.jpg -m hi    Post a memory
  yearbook list                    Browse the year
  yearbook serve                   Run the API server`

const yearbookShortDesc string = "Yearbook - shared memories"

func NewYearbookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "yearbook",
		Short:        yearbookShortDesc,
		Long:         yearbookLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .yearbook directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(postcmder.NewPostCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(deletecmder.NewDeleteCmd())
	cmd.AddCommand(resolvecmder.NewResolveCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(usecmder.NewUseCmd())
	cmd.AddCommand(letterscmder.NewLettersCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

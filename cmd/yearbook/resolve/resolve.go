// Package resolvecmder provides the resolve command, which turns a media
// reference into a direct URL.
package resolvecmder

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/cmd/yearbook/wire"
	"github.com/papercomputeco/yearbook/pkg/config"
)

// ErrUnavailable is returned when the provider has no URL for a reference.
var ErrUnavailable = errors.New("no URL available")

type ResolveCommander struct {
	cfg    *config.Config
	logger *slog.Logger
}

const resolveLongDesc string = `Resolve a media reference to a direct URL.

The URL is issued by the media provider and expires; resolve again when it
stops working. Plain http(s) URLs are printed unchanged.

Examples:
  yearbook resolve AgACAgQAAxkBAAIB...`

const resolveShortDesc string = "Resolve a media reference"

func NewResolveCmd() *cobra.Command {
	cmder := &ResolveCommander{}

	cmd := &cobra.Command{
		Use:   "resolve <ref>",
		Short: resolveShortDesc,
		Long:  resolveLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wire.LoadConfig(cmd, config.MediaFlags)
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

	for _, key := range config.MediaFlags {
		config.AddStringFlag(cmd, config.Registry, key, new(string))
	}

	return cmd
}

func (c *ResolveCommander) run(cmd *cobra.Command, ref string) error {
	out := cmd.OutOrStdout()
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		fmt.Fprintln(out, ref)
		return nil
	}

	resolver, err := wire.NewResolver(c.cfg.Media, c.logger)
	if err != nil {
		return err
	}

	url, ok, err := resolver.Resolve(cmd.Context(), ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w for %s", ErrUnavailable, ref)
	}

	fmt.Fprintln(out, url)
	return nil
}

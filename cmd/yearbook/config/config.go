// Package configcmder provides the config command for managing persistent
// yearbook configuration stored in the .yearbook/ directory.
package configcmder

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/yearbook/pkg/config"
)

const configLongDesc string = `Manage persistent yearbook configuration.

Configuration is stored as config.toml in the .yearbook/ directory and
provides default values for command flags. CLI flags and YEARBOOK_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.remote_url, storage.remote_key, storage.local_path, storage.local_quota,
  media.bot_token, media.chat_id, media.api_base, media.resolve_cache_ttl,
  media.announce_text,
  api.listen, api.access_code,
  client.api_target,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  yearbook config set <key> <value>    Set a configuration value
  yearbook config get <key>            Get a configuration value
  yearbook config list                 List all configuration values

Examples:
  yearbook config set storage.remote_url https://db.example.com
  yearbook config set media.resolve_cache_ttl 30m
  yearbook config get storage.remote_url
  yearbook config list`

const configShortDesc string = "Manage persistent yearbook configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// display masks secrets so they don't end up in scrollback.
func display(key, value string, reveal bool) string {
	if reveal || value == "" || !config.IsSecretKey(key) {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}

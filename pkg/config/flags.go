package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g. --remote-url
// on both "yearbook serve" and "yearbook post").
type Flag struct {
	// Name is the long flag name (e.g. "remote-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "storage.remote_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddInt64Flag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen      = "listen"
	FlagAccessCode     = "access-code"
	FlagRemoteURL      = "remote-url"
	FlagRemoteKey      = "remote-key"
	FlagLocalPath      = "local-path"
	FlagLocalQuota     = "local-quota"
	FlagBotToken       = "bot-token"
	FlagChatID         = "chat-id"
	FlagMediaAPIBase   = "media-api-base"
	FlagResolveTTL     = "resolve-cache-ttl"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"
	FlagAPITarget      = "api-target"
)

// StorageFlags are shared by every command that binds to storage.
var StorageFlags = []string{
	FlagRemoteURL,
	FlagRemoteKey,
	FlagLocalPath,
	FlagLocalQuota,
}

// MediaFlags are shared by every command that talks to the media provider.
var MediaFlags = []string{
	FlagBotToken,
	FlagChatID,
	FlagMediaAPIBase,
	FlagResolveTTL,
}

// Registry holds every flag definition used by the yearbook commands.
var Registry = FlagSet{
	FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagAccessCode: {
		Name:        "access-code",
		ViperKey:    "api.access_code",
		Description: "Shared access code required in the X-Yearbook-Code header",
	},
	FlagRemoteURL: {
		Name:        "remote-url",
		ViperKey:    "storage.remote_url",
		Description: "Remote backing URL (http(s):// for REST, postgres:// for a direct connection)",
	},
	FlagRemoteKey: {
		Name:        "remote-key",
		ViperKey:    "storage.remote_key",
		Description: "Remote backing access key",
	},
	FlagLocalPath: {
		Name:        "local-path",
		ViperKey:    "storage.local_path",
		Description: "Path to the local SQLite store (in-memory if empty)",
	},
	FlagLocalQuota: {
		Name:        "local-quota",
		ViperKey:    "storage.local_quota",
		Description: "Maximum serialized bytes per local collection (0 for unlimited)",
	},
	FlagBotToken: {
		Name:        "bot-token",
		ViperKey:    "media.bot_token",
		Description: "Media provider bot token",
	},
	FlagChatID: {
		Name:        "chat-id",
		ViperKey:    "media.chat_id",
		Description: "Media provider chat or channel id",
	},
	FlagMediaAPIBase: {
		Name:        "media-api-base",
		ViperKey:    "media.api_base",
		Description: "Media provider API base URL",
	},
	FlagResolveTTL: {
		Name:        "resolve-cache-ttl",
		ViperKey:    "media.resolve_cache_ttl",
		Description: "How long resolved media URLs are cached (e.g. 10m, empty disables)",
	},
	FlagEventsProvider: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Record event publisher (nop, kafka)",
	},
	FlagEventsBrokers: {
		Name:        "events-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma separated Kafka brokers",
	},
	FlagEventsTopic: {
		Name:        "events-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for record events",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "Yearbook API server URL",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddInt64Flag registers an int64 flag on cmd from the given FlagSet.
func AddInt64Flag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int64) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Int64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Int64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt64 returns the default int64 value for a viper key from NewDefaultConfig.
func defaultInt64(viperKey string) int64 {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt64(viperKey)
}

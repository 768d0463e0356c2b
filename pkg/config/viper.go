package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/yearbook/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the YEARBOOK_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (YEARBOOK_STORAGE_REMOTE_URL, YEARBOOK_MEDIA_BOT_TOKEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("YEARBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. Every key is registered, even empty ones, so
// AutomaticEnv can see it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		v.SetDefault(key, configKeys[key].get(d))
	}

	// typed defaults for keys read with GetInt64/GetBool
	v.SetDefault("storage.local_quota", d.Storage.LocalQuota)
	v.SetDefault("media.announce_text", d.Media.AnnounceText)
}

// FromViper materializes the effective configuration after flag, env, file
// and default layering.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			RemoteURL:  v.GetString("storage.remote_url"),
			RemoteKey:  v.GetString("storage.remote_key"),
			LocalPath:  v.GetString("storage.local_path"),
			LocalQuota: v.GetInt64("storage.local_quota"),
		},
		Media: MediaConfig{
			BotToken:        v.GetString("media.bot_token"),
			ChatID:          v.GetString("media.chat_id"),
			APIBase:         v.GetString("media.api_base"),
			ResolveCacheTTL: v.GetString("media.resolve_cache_ttl"),
			AnnounceText:    v.GetBool("media.announce_text"),
		},
		API: APIConfig{
			Listen:     v.GetString("api.listen"),
			AccessCode: v.GetString("api.access_code"),
		},
		Client: ClientConfig{
			APITarget: v.GetString("client.api_target"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}

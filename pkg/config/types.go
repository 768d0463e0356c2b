package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent yearbook configuration stored as
// config.toml in the .yearbook/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Media   MediaConfig   `toml:"media"`
	API     APIConfig     `toml:"api"`
	Client  ClientConfig  `toml:"client"`
	Events  EventsConfig  `toml:"events"`
}

// StorageConfig holds the binding inputs. A remote URL and key select the
// remote backing; otherwise the local store at LocalPath is used.
type StorageConfig struct {
	RemoteURL  string `toml:"remote_url,omitempty"`
	RemoteKey  string `toml:"remote_key,omitempty"`
	LocalPath  string `toml:"local_path,omitempty"`
	LocalQuota int64  `toml:"local_quota,omitempty"`
}

// MediaConfig holds media provider credentials and resolver settings.
type MediaConfig struct {
	BotToken        string `toml:"bot_token,omitempty"`
	ChatID          string `toml:"chat_id,omitempty"`
	APIBase         string `toml:"api_base,omitempty"`
	ResolveCacheTTL string `toml:"resolve_cache_ttl,omitempty"`
	AnnounceText    bool   `toml:"announce_text,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen     string `toml:"listen,omitempty"`
	AccessCode string `toml:"access_code,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (e.g. yearbook watch). Values are full URLs.
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// EventsConfig selects where record change events are published.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// BrokerList splits the comma separated broker setting.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// CacheTTL parses the resolver cache TTL. Empty means caching is off.
func (m MediaConfig) CacheTTL() (time.Duration, error) {
	if m.ResolveCacheTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(m.ResolveCacheTTL)
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.remote_url": {
		get: func(c *Config) string { return c.Storage.RemoteURL },
		set: func(c *Config, v string) error { c.Storage.RemoteURL = v; return nil },
	},
	"storage.remote_key": {
		get: func(c *Config) string { return c.Storage.RemoteKey },
		set: func(c *Config, v string) error { c.Storage.RemoteKey = v; return nil },
	},
	"storage.local_path": {
		get: func(c *Config) string { return c.Storage.LocalPath },
		set: func(c *Config, v string) error { c.Storage.LocalPath = v; return nil },
	},
	"storage.local_quota": {
		get: func(c *Config) string {
			if c.Storage.LocalQuota == 0 {
				return ""
			}
			return strconv.FormatInt(c.Storage.LocalQuota, 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for storage.local_quota: %q", v)
			}
			c.Storage.LocalQuota = n
			return nil
		},
	},
	"media.bot_token": {
		get: func(c *Config) string { return c.Media.BotToken },
		set: func(c *Config, v string) error { c.Media.BotToken = v; return nil },
	},
	"media.chat_id": {
		get: func(c *Config) string { return c.Media.ChatID },
		set: func(c *Config, v string) error { c.Media.ChatID = v; return nil },
	},
	"media.api_base": {
		get: func(c *Config) string { return c.Media.APIBase },
		set: func(c *Config, v string) error { c.Media.APIBase = v; return nil },
	},
	"media.resolve_cache_ttl": {
		get: func(c *Config) string { return c.Media.ResolveCacheTTL },
		set: func(c *Config, v string) error {
			if v != "" {
				if _, err := time.ParseDuration(v); err != nil {
					return fmt.Errorf("invalid value for media.resolve_cache_ttl: %w", err)
				}
			}
			c.Media.ResolveCacheTTL = v
			return nil
		},
	},
	"media.announce_text": {
		get: func(c *Config) string { return strconv.FormatBool(c.Media.AnnounceText) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for media.announce_text: %w", err)
			}
			c.Media.AnnounceText = b
			return nil
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.access_code": {
		get: func(c *Config) string { return c.API.AccessCode },
		set: func(c *Config, v string) error { c.API.AccessCode = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error {
			switch v {
			case "nop", "kafka":
			default:
				return fmt.Errorf("invalid value for events.provider: %q (available: nop, kafka)", v)
			}
			c.Events.Provider = v
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

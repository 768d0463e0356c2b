package config

const (
	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"
	defaultMediaAPIBase    = "https://api.telegram.org"
	defaultEventsProvider  = "nop"
	defaultEventsTopic     = "yearbook.records"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Media: MediaConfig{
			APIBase: defaultMediaAPIBase,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}

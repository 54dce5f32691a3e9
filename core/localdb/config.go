package localdb

// Config holds configuration for the local mirror database.
type Config struct {
	// Path is the SQLite database file path.
	Path string `mapstructure:"path" default:"membersync.db"`
	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `mapstructure:"busy_timeout_ms" default:"5000"`
}

// BusyTimeoutMillis returns the configured busy timeout, defaulting when unset.
func (c Config) BusyTimeoutMillis() int {
	if c.BusyTimeoutMs <= 0 {
		return 5000
	}
	return c.BusyTimeoutMs
}

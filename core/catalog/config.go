package catalog

// Config holds configuration for the catalog REST API.
type Config struct {
	// BaseURL is the API root, e.g. "https://shop.example.org/wp-json/wc/v3".
	BaseURL string `mapstructure:"base_url" default:""`
	// ConsumerKey is the static API consumer key.
	ConsumerKey string `mapstructure:"consumer_key" default:""`
	// ConsumerSecret is the static API consumer secret.
	ConsumerSecret string `mapstructure:"consumer_secret" default:""`
	// TimeoutSeconds bounds connection setup and response reading.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// PerPage is the page size used when walking collections.
	PerPage int `mapstructure:"per_page" default:"40"`
}

// PageSize returns the configured page size, defaulting when unset.
func (c Config) PageSize() int {
	if c.PerPage <= 0 {
		return 40
	}
	return c.PerPage
}

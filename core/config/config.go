package config

import (
	"reflect"
	"strings"

	"membersync/core/catalog"
	"membersync/core/ledger"
	"membersync/core/localdb"
	"membersync/core/logger"
	"membersync/core/server"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Catalog holds configuration for the remote REST catalog.
	Catalog catalog.Config `mapstructure:"catalog"`
	// Ledger holds configuration for the legacy ledger database.
	Ledger ledger.Config `mapstructure:"ledger"`
	// LocalDB holds configuration for the local mirror database.
	LocalDB localdb.Config `mapstructure:"localdb"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Engine holds configuration for the sync engine.
	Engine Engine `mapstructure:"engine"`
}

// Engine holds configuration for the sync engine run policy.
type Engine struct {
	// MaxAttempts is the number of attempts before a run fails permanently.
	MaxAttempts int `mapstructure:"max_attempts" default:"5"`
	// RetryDelaySeconds is the fixed delay between retry attempts.
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" default:"30"`
	// IntervalMinutes is the periodic sync interval.
	IntervalMinutes int `mapstructure:"interval_minutes" default:"60"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	// We construct the path to .env
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}

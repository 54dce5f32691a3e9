// Package config provides configuration management for membersync.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections owned by their respective packages:
//   - Server: HTTP server settings (port, API key)
//   - Catalog: REST catalog endpoint and consumer credentials
//   - Ledger: legacy MySQL ledger connection details
//   - LocalDB: local SQLite mirror path
//   - Log: logging level and format
//   - Engine: sync run policy (attempts, retry delay, periodic interval)
//
// Defaults are declared as `default:` struct tags and bound reflectively, so
// every key is registered with Viper and overridable through the environment
// (e.g. CATALOG_BASE_URL -> catalog.base_url).
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config

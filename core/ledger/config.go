package ledger

// Config holds configuration for the legacy ledger database connection.
type Config struct {
	// Host is the ledger database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the ledger database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the ledger database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the ledger database password.
	Password string `mapstructure:"password" default:""`
	// Name is the ledger database name.
	Name string `mapstructure:"name" default:"socios"`
	// TimeoutSeconds bounds connection setup and per-query I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

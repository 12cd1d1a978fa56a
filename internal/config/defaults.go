package config

import "time"

// Default configuration values.
const (
	// DefaultAddress is the well-known listen address: all interfaces,
	// port 44445.
	DefaultAddress = "0.0.0.0:44445"
	// DefaultReadTimeout is the per-read poll interval for connection
	// handlers and the accept loop.
	DefaultReadTimeout = 1 * time.Second
)

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:     DefaultAddress,
			ReadTimeout: Duration(DefaultReadTimeout),
		},
		Logging: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

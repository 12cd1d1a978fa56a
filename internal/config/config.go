// Package config provides configuration loading and validation for the
// linesift server.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Dataset DatasetConfig `yaml:"dataset"`
	Logging LogConfig     `yaml:"logging"`
}

// ServerConfig holds listener-related configuration.
type ServerConfig struct {
	// Address is the listen address, all interfaces on the well-known port
	// by default.
	Address string `yaml:"address"`
	// UseTLS demands a TLS handshake on every accepted connection.
	UseTLS bool `yaml:"useTLS"`
	// TLSCert is the path to the certificate file (required with UseTLS).
	TLSCert string `yaml:"tlsCert"`
	// TLSKey is the path to the private key file (required with UseTLS).
	TLSKey string `yaml:"tlsKey"`
	// ReadTimeout bounds each blocking read so connection handlers observe
	// shutdown within one interval.
	ReadTimeout Duration `yaml:"readTimeout"`
}

// DatasetConfig holds dataset-related configuration.
type DatasetConfig struct {
	// Path is the dataset file location.
	Path string `yaml:"path"`
	// RereadOnQuery forces a fresh disk read per query instead of caching.
	RereadOnQuery bool `yaml:"rereadOnQuery"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "30s",
// "5m", or "1h". A bare "d" suffix for days is also accepted.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	dur, err := ParseDuration(raw)
	if err != nil {
		return err
	}

	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration parses a duration string supporting formats like "30s", "5m",
// "1h", and "90d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	// Day suffix is not supported by time.ParseDuration.
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return dur, nil
}

package config

import "fmt"

// ValidateConfig checks the configuration for errors and returns all problems
// found. A non-empty result is fatal at startup.
func ValidateConfig(cfg *Config) []error {
	var errs []error

	if cfg.Server.Address == "" {
		errs = append(errs, fmt.Errorf("server.address must not be empty"))
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.readTimeout must be positive"))
	}

	if cfg.Server.UseTLS {
		if cfg.Server.TLSCert == "" {
			errs = append(errs, fmt.Errorf("server.tlsCert is required when useTLS is enabled"))
		}
		if cfg.Server.TLSKey == "" {
			errs = append(errs, fmt.Errorf("server.tlsKey is required when useTLS is enabled"))
		}
	}

	if cfg.Dataset.Path == "" {
		errs = append(errs, fmt.Errorf("dataset.path must not be empty"))
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error"))
	}

	switch cfg.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json"))
	}

	return errs
}

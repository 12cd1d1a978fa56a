// Package main provides the serve command for the linesift server.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linesift/linesift/internal/config"
	"github.com/linesift/linesift/internal/index"
	"github.com/linesift/linesift/internal/logging"
	"github.com/linesift/linesift/internal/server"
	"github.com/linesift/linesift/internal/transport"
)

// shutdownTimeout bounds the drain of active connections on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	address := fs.String("address", "", "Listen address (overrides config)")
	file := fs.String("file", "", "Dataset file path (overrides config)")
	reread := fs.Bool("reread", false, "Re-read the dataset on every query (overrides config)")
	tlsCert := fs.String("tls-cert", "", "TLS certificate file (overrides config)")
	tlsKey := fs.String("tls-key", "", "TLS private key file (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	// Load configuration
	var cfg *config.Config
	var err error

	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			return 1
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply command-line overrides (higher priority than config file)
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *file != "" {
		cfg.Dataset.Path = *file
	}
	if *reread {
		cfg.Dataset.RereadOnQuery = true
	}
	if *tlsCert != "" || *tlsKey != "" {
		cfg.Server.UseTLS = true
		cfg.Server.TLSCert = *tlsCert
		cfg.Server.TLSKey = *tlsKey
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	// Apply environment variable overrides (highest priority)
	applyEnvOverrides(cfg)

	// Validate configuration
	errs := config.ValidateConfig(cfg)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration errors:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	var tlsConfig *tls.Config
	if cfg.Server.UseTLS {
		tlsConfig, err = transport.LoadServerTLSConfig(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load TLS config: %v\n", err)
			return 1
		}
	}

	ix := index.New(cfg.Dataset.Path, cfg.Dataset.RereadOnQuery)

	srv := server.New(server.Config{
		Address:     cfg.Server.Address,
		TLSConfig:   tlsConfig,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout),
		Logger:      logger,
	}, ix)

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		return 1
	}

	logger.Info("server started",
		"address", srv.Addr(),
		"dataset", cfg.Dataset.Path,
		"rereadOnQuery", cfg.Dataset.RereadOnQuery,
		"tls", cfg.Server.UseTLS,
	)

	// Wait for a shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables have the highest priority.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("LINESIFT_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("LINESIFT_SERVER_TLS_CERT"); v != "" {
		cfg.Server.UseTLS = true
		cfg.Server.TLSCert = v
	}
	if v := os.Getenv("LINESIFT_SERVER_TLS_KEY"); v != "" {
		cfg.Server.UseTLS = true
		cfg.Server.TLSKey = v
	}
	if v := os.Getenv("LINESIFT_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("LINESIFT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage information to the given writer.
func printUsage(w io.Writer) {
	fmt.Fprint(w, `linesift - TCP line-lookup server

Usage:
  linesift <command> [options]

Commands:
  serve       Start the lookup server
  query       Send a query to a running server
  version     Show version information

Use "linesift <command> -h" for more information about a command.
`)
}

// printServeUsage prints the serve command usage.
func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `Start the lookup server

Usage:
  linesift serve [options]

Options:
  -config string
        Path to configuration file
  -address string
        Listen address (overrides config, default "0.0.0.0:44445")
  -file string
        Dataset file path (overrides config)
  -reread
        Re-read the dataset file on every query (overrides config)
  -tls-cert string
        TLS certificate file (overrides config)
  -tls-key string
        TLS private key file (overrides config)
  -log-level string
        Log level: debug, info, warn, error (overrides config)
  -h, -help
        Show this help message

Environment Variables:
  LINESIFT_SERVER_ADDRESS   Override server listen address
  LINESIFT_DATASET_PATH     Override dataset file path
  LINESIFT_LOGGING_LEVEL    Override log level
`)
}

// printQueryUsage prints the query command usage.
func printQueryUsage(w io.Writer) {
	fmt.Fprint(w, `Send a query to a running server

Usage:
  linesift query [options] <string>

Options:
  -address string
        Server address (default "127.0.0.1:44445")
  -tls
        Connect over TLS
  -ca string
        CA certificate file for TLS server verification
  -timing
        Print the round-trip time
  -h, -help
        Show this help message
`)
}

// printVersionUsage prints the version command usage.
func printVersionUsage(w io.Writer) {
	fmt.Fprint(w, `Show version information

Usage:
  linesift version [options]

Options:
  -short
        Show only version number
  -h, -help
        Show this help message
`)
}

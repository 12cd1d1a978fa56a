// Package main provides the query command, a small client for a running
// linesift server.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/linesift/linesift/internal/transport"
)

// queryReadTimeout bounds the wait for the server's response.
const queryReadTimeout = 10 * time.Second

// queryCmd handles the query command.
func queryCmd(args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	address := fs.String("address", "127.0.0.1:44445", "Server address")
	useTLS := fs.Bool("tls", false, "Connect over TLS")
	caFile := fs.String("ca", "", "CA certificate file for TLS server verification")
	timing := fs.Bool("timing", false, "Print the round-trip time")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printQueryUsage(os.Stdout)
		return 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Exactly one query string is required.")
		printQueryUsage(os.Stderr)
		return 1
	}
	query := fs.Arg(0)

	var conn net.Conn
	var err error
	if *useTLS {
		if *caFile == "" {
			fmt.Fprintln(os.Stderr, "-ca is required with -tls.")
			return 1
		}
		conn, err = transport.DialTLS(*address, *caFile)
	} else {
		conn, err = transport.Dial(*address)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		return 1
	}
	defer conn.Close()

	start := time.Now()
	if _, err := conn.Write([]byte(query + "\n")); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to send query: %v\n", err)
		return 1
	}

	conn.SetReadDeadline(time.Now().Add(queryReadTimeout))
	response, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read response: %v\n", err)
		return 1
	}
	elapsed := time.Since(start)

	fmt.Print(response)
	if *timing {
		fmt.Printf("(%.3f ms)\n", float64(elapsed.Microseconds())/1000)
	}

	// "STRING NOT FOUND" and "ERROR: ..." map to distinct exit codes so
	// shell scripts can branch on the outcome.
	switch {
	case strings.HasPrefix(response, "STRING EXISTS"):
		return 0
	case strings.HasPrefix(response, "STRING NOT FOUND"):
		return 1
	default:
		return 2
	}
}

// Package server implements the network layer of the line-lookup service:
// the accept loop, per-connection query handling, and graceful shutdown
// coordination.
//
// # Overview
//
// A Server owns the listening socket and spawns one goroutine per accepted
// connection. Each Connection runs a Reading -> Processing -> Responding loop:
// it reads one query per read, delegates the membership test to the
// configured Index, and writes back exactly one status token
// ("STRING EXISTS", "STRING NOT FOUND", or "ERROR: <message>").
//
// # Usage
//
//	srv := server.New(server.Config{
//	    Address: "0.0.0.0:44445",
//	    Logger:  logger,
//	}, fileIndex)
//
//	if err := srv.Start(); err != nil {
//	    // bind failures are fatal at startup
//	}
//
//	// later
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	srv.Stop(ctx)
//
// # Shutdown
//
// Shutdown is cooperative. Both the accept call and every connection read are
// bounded by a deadline, so each loop observes the shutdown signal within one
// polling interval. Stop returns only after every previously accepted
// connection has finished its current exchange and closed; in-flight lookups
// are allowed to complete.
//
// # TLS
//
// When Config.TLSConfig is set, every accepted connection is upgraded before
// its handler starts. A failed handshake closes that one connection and is
// logged; the listener keeps accepting. Above the transport the protocol is
// identical for plain and TLS connections.
package server

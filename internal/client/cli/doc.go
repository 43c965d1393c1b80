// Package cli provides the interactive lmsgate command-line client.
//
// It wires configuration, the local database, the identity service client
// and the session flow controller into a REPL. The prompt shows the current
// step and whether the identity service is reachable; a background watcher
// pings the service every OnlineCheckInterval.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli

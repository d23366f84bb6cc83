// Package cmd implements the sockrpc command-line interface. It serves the
// demo contract on a Unix socket and calls it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server for the demo contract
//   - call: Calls a single demo method and prints the result
//   - methods: Lists the declared methods and their ids
//   - bench: Measures call latency and throughput against a running server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable SOCKRPC_<FLAG>
// (e.g. SOCKRPC_ENDPOINT=/run/app.sock), optionally from a .env file.
//
// See sockrpc -help for a list of all commands.
package cmd

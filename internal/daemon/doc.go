// Package daemon coordinates the long-running cinefuse process.
//
// It wires queue storage, the catalog, the workflow manager, and the refresh
// scheduler into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes the delegate surface the IPC server
// calls on behalf of the CLI, serves the read-only HTTP API, and owns
// notifications triggered by daemon and queue lifecycle events.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon

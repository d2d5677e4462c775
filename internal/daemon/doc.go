// Package daemon coordinates the long-running photolog process.
//
// It wires configuration, queue storage, the ingest producer, and the
// workflow manager into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes queue maintenance helpers
// (peek, quarantine listing, retry, purge), accepts new uploads and
// maintenance jobs, reports dependency health, and serves the optional
// bearer-authenticated HTTP API.
//
// Keep orchestration logic here: pipeline steps live in their respective
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon

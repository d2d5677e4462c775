// Command photolog is the operator CLI for the photolog upload daemon.
//
// Queue commands talk to a running daemon over its Unix socket and fall back
// to opening the queue database directly when no daemon is listening, so
// quarantine triage works while the daemon is down. `photolog daemon run` is
// the foreground entry point that `photolog daemon start` launches.
package main

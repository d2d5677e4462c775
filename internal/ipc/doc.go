// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Most
// responses alias the api package types so the CLI renders IPC and HTTP
// results the same way.
package ipc

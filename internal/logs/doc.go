// Package logs reads the daemon's run log from disk.
//
// Tail returns the last lines of photolog.log, or everything appended since
// a previous offset, optionally waiting for new output. Follow wraps Tail in
// a loop for `photolog logs --follow`.
package logs

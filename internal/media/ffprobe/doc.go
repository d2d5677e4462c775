// Package ffprobe wraps ffprobe's JSON output for video uploads.
//
// Inspect runs the binary once per file; the Result helpers pull out what the
// catalog stores for a video: frame dimensions (rotation applied), duration,
// container size and the recorded creation time.
package ffprobe

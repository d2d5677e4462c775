// Package thumbs renders JPEG thumbnails with ffmpeg.
//
// Each configured size gets its own random suffix so the URL of one size
// cannot be derived from another.
package thumbs

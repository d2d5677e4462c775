// Package exifmeta reads the capture metadata the catalog stores for an
// upload: taken date, camera, orientation, dimensions and size.
//
// Images and camera raw files go through EXIF (goexif); videos go through
// ffprobe. When no capture date is recorded the upload date is used.
package exifmeta

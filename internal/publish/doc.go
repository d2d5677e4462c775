// Package publish moves finished media off the host.
//
// ObjectStore implementations hold the originals and thumbnails that the
// catalog links to: DirStore copies into a local directory tree and
// HTTPStore PUTs to an object endpoint. Mirror uploads an original to a
// photo-sharing service through a multipart HTTP endpoint that answers with
// the remote URL and id.
package publish

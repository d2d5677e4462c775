// Package textutil normalizes user-supplied text for filenames and tags.
//
// Tags are folded to lowercase ASCII slugs so "Été 2019" and "ete-2019" land on
// the same catalog tag, and filenames are reduced to a filesystem-safe stem
// before an upload is copied into the upload directory.
package textutil

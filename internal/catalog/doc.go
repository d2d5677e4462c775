// Package catalog persists published pictures and their tags in SQLite.
//
// The catalog is the target of the upload pipeline's store step and of the
// single-shot maintenance kinds (tag-day, mass-tag, edit-dates,
// change-date). Pictures are keyed by the job key that produced them so a
// retried store step overwrites rather than duplicates.
package catalog

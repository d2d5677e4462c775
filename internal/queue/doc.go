// Package queue persists job records in SQLite as a durable FIFO with a
// separate poison table for jobs that exhausted their retries.
//
// The Store owns two tables: queue holds pending work ordered by an
// autoincrement id, and bad_jobs holds quarantined records until an operator
// retries or purges them. PopLeft removes the head inside a BEGIN IMMEDIATE
// transaction so that concurrent consumers never receive the same entry.
// Records are opaque JSON blobs here; the envelope is decoded only to validate
// appends and to reset attempts when reviving poison entries.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue

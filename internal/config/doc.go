// Package config loads, normalizes, and validates photolog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for service
// tokens. The Config type centralizes every knob the daemon and CLI need:
// upload and data directories, the queue retry bound, the extension sets that
// route uploads to a pipeline, and the publishing targets.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extension lists, and clear validation errors.
package config

// Package config loads, normalizes, and validates tuner configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TUNER_USER_ID and TUNER_RECORDS_API_KEY. Bare bucket paths are rewritten to
// file:// URLs so the object store always receives an afs URL.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, positive poll intervals, and clear validation errors.
package config

// Package config loads, normalizes, and validates mediaflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the MEDIAFLOW_API_TOKEN
// environment fallback. Always obtain settings through this package so
// downstream code receives sanitized paths and clear validation errors.
package config

// Package config loads, normalizes, and validates pcsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PC_USERNAME and PC_PASSWORD (optionally sourced from a dotenv file). The
// Config type centralizes every knob the sync pipeline and CLI need, so the
// cache, output and state directories plus the remote endpoints are
// discovered in one pass and handed to the pipeline at construction time.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

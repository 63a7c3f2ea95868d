// Package config loads, normalizes, and validates mocap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MOCAP_OUTPUT_DIR. The Config type centralizes every knob the CLI and the
// extraction pipeline need so output locations, BVH formatting and clip
// naming are resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

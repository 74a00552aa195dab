// Package config loads, normalizes, and validates pipeline configuration.
//
// It supplies repository defaults that mirror the site layout (uploads, web,
// assets, backup and content roots under public/), resolves relative site
// paths against the project directory, expands tilde shortcuts for local
// state, reads TOML files, and honours environment fallbacks such as
// PIHLA_PROJECT_DIR and PIHLA_LOG_LEVEL.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config

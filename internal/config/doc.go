// Package config loads, normalizes, and validates carousel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COMFYUI_API_URL and CAROUSEL_TEMPLATE_DIR, optionally sourced from a .env
// file. The Config type centralizes every knob the CLI, the HTTP boundary,
// and the engine client need: engine address and timeouts, the two retry
// budgets, the template directory with per-template node roles, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs and paths, canonical log formats, and clear validation errors.
package config

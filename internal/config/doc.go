// Package config loads the bot configuration. Tuning knobs (buffering,
// delivery timeouts, monitoring API, logging) come from a YAML file;
// per-meeting session parameters (credentials, meeting id, display name,
// backend URL) come from the environment, with .env support for local runs.
package config

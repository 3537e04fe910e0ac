// Package server exposes the monitoring HTTP API: session state, the live
// participant roster, buffer and delivery statistics, sanitized
// configuration, and Prometheus metrics.
package server

// Package delivery posts audio chunks and roster deltas to the backend over
// HTTP. Sends are best-effort with short timeouts and no retry, dropping a
// chunk is preferable to buffering stale audio behind a slow backend.
package delivery

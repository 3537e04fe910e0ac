// Package roster maintains the thread-safe participant roster for the current
// meeting. It is fed by the platform's join/leave/rename notifications,
// forwards one delta per observed change to the backend, and answers
// best-effort name lookups for outgoing audio chunks.
package roster

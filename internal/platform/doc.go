// Package platform defines the surface of the conferencing SDK the bot runs
// against: the asynchronous callback events it delivers (authentication
// results, meeting status transitions, participant changes, raw audio frames)
// and the synchronous query/command operations the bot may invoke on it.
//
// Concrete vendor bindings register themselves via RegisterDriver from an
// init function and are selected at build time with a blank import in the
// bot binary, following the database/sql driver convention.
package platform

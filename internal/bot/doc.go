// Package bot drives the meeting session lifecycle. The Controller is an
// explicit state machine fed by asynchronous platform events, the Bot wires
// the controller to the roster, the audio buffers, and the delivery client
// for one meeting per process invocation.
package bot

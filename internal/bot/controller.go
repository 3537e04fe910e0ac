package bot

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
	"github.com/showheysas/tech0notta/internal/roster"
)

// State is a phase of the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticating
	StateJoining
	StateInMeeting
	StateDisconnecting
	StateEnded
	StateFailed
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticating:
		return "authenticating"
	case StateJoining:
		return "joining"
	case StateInMeeting:
		return "in_meeting"
	case StateDisconnecting:
		return "disconnecting"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Process exit codes.
const (
	ExitOK    = 0
	ExitFatal = 1
)

// sessionParams holds the join parameters recorded by Start.
type sessionParams struct {
	token       string
	meetingID   string
	password    string
	displayName string
}

// Controller is the session state machine. It implements
// platform.EventHandler and reacts to each platform event according to the
// current state, ignoring events that are illegal for it. All external
// effects of a transition (audio capture, roster updates, leaving) happen
// inside the event handlers so the ordering follows the platform's own
// event order.
type Controller struct {
	sdk     platform.SDK
	buffers *audio.Manager
	roster  *roster.Roster
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	state     State
	params    sessionParams
	capturing bool
	stopped   bool

	done     chan int
	doneOnce sync.Once
}

// NewController creates a controller in the Uninitialized state.
func NewController(sdk platform.SDK, buffers *audio.Manager, rost *roster.Roster, logger *slog.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		sdk:     sdk,
		buffers: buffers,
		roster:  rost,
		logger:  logger,
		metrics: m,
		state:   StateUninitialized,
		done:    make(chan int, 1),
	}
}

// Initialize brings up the platform connection and registers the event
// handler. Calling it again after success is a no-op.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		return nil
	}

	if err := c.sdk.Init(); err != nil {
		return fmt.Errorf("platform init failed: %w", err)
	}
	c.sdk.SetEventHandler(c)

	c.setStateLocked(StateInitializing)
	return nil
}

// Start records the session parameters and requests authentication. Valid
// only before the session is underway.
func (c *Controller) Start(token, meetingID, password, displayName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInitializing {
		return fmt.Errorf("start not valid in state %s", c.state)
	}

	c.params = sessionParams{token: token, meetingID: meetingID, password: password, displayName: displayName}
	c.setStateLocked(StateAuthenticating)

	if err := c.sdk.Authenticate(token); err != nil {
		c.failLocked("authentication request failed", err)
		return err
	}
	return nil
}

// Stop is the externally triggered teardown, typically from a termination
// signal. It flushes and unsubscribes capture, requests one Leave, and
// resolves the session with exit code 0. Safe to call concurrently with
// platform status events and safe to call more than once.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true

	c.stopCaptureLocked()

	switch c.state {
	case StateInMeeting, StateJoining, StateAuthenticating:
		if err := c.sdk.Leave(); err != nil {
			c.logger.Warn("Leave request failed", slog.String("error", err.Error()))
		}
		c.setStateLocked(StateDisconnecting)
	}
	c.mu.Unlock()

	c.signalDone(ExitOK)
}

// Done resolves with the process exit code once the session is over.
func (c *Controller) Done() <-chan int {
	return c.done
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StateName returns the current state as a string, for the monitoring API.
func (c *Controller) StateName() string {
	return c.State().String()
}

// OnAuthResult handles the asynchronous authentication outcome.
func (c *Controller) OnAuthResult(result platform.AuthResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAuthenticating {
		c.logger.Warn("Ignoring auth result in unexpected state",
			slog.String("state", c.state.String()),
			slog.String("result", result.String()))
		return
	}

	if result != platform.AuthSuccess {
		c.failLocked("authentication rejected", fmt.Errorf("auth result %s", result))
		return
	}

	c.setStateLocked(StateJoining)
	if err := c.sdk.Join(c.params.meetingID, c.params.password, c.params.displayName); err != nil {
		c.failLocked("join request failed", err)
	}
}

// OnMeetingStatus handles meeting status transitions from the platform.
func (c *Controller) OnMeetingStatus(status platform.Status, resultCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Meeting status changed",
		slog.String("status", status.String()),
		slog.Int("result_code", resultCode),
		slog.String("state", c.state.String()))

	switch status {
	case platform.StatusInMeeting:
		if c.state != StateJoining {
			c.logger.Warn("Ignoring in-meeting status in unexpected state",
				slog.String("state", c.state.String()))
			return
		}
		c.setStateLocked(StateInMeeting)
		c.enterMeetingLocked()

	case platform.StatusDisconnecting:
		c.stopCaptureLocked()
		if c.state == StateInMeeting || c.state == StateJoining {
			c.setStateLocked(StateDisconnecting)
		}

	case platform.StatusEnded:
		c.stopCaptureLocked()
		if c.state != StateFailed {
			c.setStateLocked(StateEnded)
			c.signalDone(ExitOK)
		}

	case platform.StatusFailed:
		c.stopCaptureLocked()
		c.failLocked("meeting failed", fmt.Errorf("result code %d", resultCode))
	}
}

// OnParticipantsJoined handles a batch of participant joins.
func (c *Controller) OnParticipantsJoined(ids []uint32) {
	if !c.inMeeting() {
		return
	}
	c.roster.OnJoin(ids)
	c.metrics.Participants.Set(float64(c.roster.Count()))
}

// OnParticipantsLeft handles a batch of participant departures. Buffered
// audio is flushed before the roster forgets the name, so a mid-utterance
// departure still produces a correctly attributed partial chunk.
func (c *Controller) OnParticipantsLeft(ids []uint32) {
	if !c.inMeeting() {
		return
	}
	for _, id := range ids {
		c.buffers.FlushOne(id)
	}
	c.roster.OnLeave(ids)
	c.metrics.Participants.Set(float64(c.roster.Count()))
}

// OnParticipantsRenamed handles display name changes.
func (c *Controller) OnParticipantsRenamed(ids []uint32) {
	if !c.inMeeting() {
		return
	}
	c.roster.OnRename(ids)
}

// enterMeetingLocked performs the in-meeting side effects: listen-only
// audio, roster snapshot, capture start. Caller holds c.mu.
func (c *Controller) enterMeetingLocked() {
	if err := c.sdk.JoinAudio(); err != nil {
		c.logger.Error("Failed to join audio channel", slog.String("error", err.Error()))
	}
	if err := c.sdk.MuteSelf(); err != nil {
		c.logger.Error("Failed to mute self", slog.String("error", err.Error()))
	}

	c.roster.Snapshot(c.sdk.Participants())
	c.metrics.Participants.Set(float64(c.roster.Count()))

	if err := c.sdk.SubscribeAudio(c.buffers); err != nil {
		c.logger.Error("Failed to subscribe to raw audio", slog.String("error", err.Error()))
		return
	}
	c.capturing = true
	c.logger.Info("Audio capture started", slog.Int("participants", c.roster.Count()))
}

// stopCaptureLocked unsubscribes and drains all buffers. Idempotent, the
// stop path and the platform's disconnect events both call it. Caller
// holds c.mu.
func (c *Controller) stopCaptureLocked() {
	if !c.capturing {
		return
	}
	c.capturing = false

	if err := c.sdk.UnsubscribeAudio(); err != nil {
		c.logger.Warn("Unsubscribe failed", slog.String("error", err.Error()))
	}
	c.buffers.FlushAll()
	c.logger.Info("Audio capture stopped")
}

// failLocked moves to the terminal Failed state and resolves the session
// with exit code 1. Caller holds c.mu.
func (c *Controller) failLocked(reason string, err error) {
	c.logger.Error("Session failed",
		slog.String("reason", reason),
		slog.String("state", c.state.String()),
		slog.String("error", err.Error()))
	c.setStateLocked(StateFailed)
	c.signalDone(ExitFatal)
}

// setStateLocked transitions the state machine. Caller holds c.mu.
func (c *Controller) setStateLocked(to State) {
	if c.state == to {
		return
	}
	c.logger.Info("State transition",
		slog.String("from", c.state.String()),
		slog.String("to", to.String()))
	c.state = to
	c.metrics.RecordStateTransition(to.String())
}

func (c *Controller) inMeeting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateInMeeting
}

func (c *Controller) signalDone(code int) {
	c.doneOnce.Do(func() {
		c.done <- code
	})
}

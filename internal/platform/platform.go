package platform

import "fmt"

// Status represents an asynchronous meeting status reported by the platform.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusInMeeting
	StatusDisconnecting
	StatusEnded
	StatusFailed
)

// String converts a meeting status to a human-readable string
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusInMeeting:
		return "in_meeting"
	case StatusDisconnecting:
		return "disconnecting"
	case StatusEnded:
		return "ended"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// AuthResult represents the outcome of an asynchronous authentication request.
type AuthResult int

const (
	AuthSuccess AuthResult = iota
	AuthBadToken
	AuthTokenExpired
	AuthNetworkError
)

// String converts an authentication result to a human-readable string
func (r AuthResult) String() string {
	switch r {
	case AuthSuccess:
		return "success"
	case AuthBadToken:
		return "bad_token"
	case AuthTokenExpired:
		return "token_expired"
	case AuthNetworkError:
		return "network_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// ParticipantInfo is the platform's live metadata for one participant.
type ParticipantInfo struct {
	ID           uint32
	Name         string
	IsHost       bool
	IsAudioMuted bool
}

// AudioFrame is one raw-audio delivery for a single speaker. Frames for
// different speakers may arrive concurrently and on a different execution
// context than the lifecycle callbacks.
type AudioFrame struct {
	SpeakerID  uint32
	Data       []byte
	SampleRate int
	Channels   int
}

// EventHandler receives the platform's asynchronous lifecycle and roster
// notifications. The platform delivers these sequentially, in order.
type EventHandler interface {
	OnAuthResult(result AuthResult)
	OnMeetingStatus(status Status, resultCode int)
	OnParticipantsJoined(ids []uint32)
	OnParticipantsLeft(ids []uint32)
	OnParticipantsRenamed(ids []uint32)
}

// AudioSink receives raw audio frames while a subscription is active.
type AudioSink interface {
	OnFrame(frame AudioFrame)
}

// SDK is the synchronous query/command surface of the conferencing platform.
// All methods returning an error report only whether the request was
// accepted; outcomes arrive later through the EventHandler.
type SDK interface {
	// Init prepares the platform handle. Must be called before anything else.
	Init() error

	// SetEventHandler registers the receiver for asynchronous notifications.
	SetEventHandler(h EventHandler)

	// Authenticate submits the access credential. The result is delivered
	// asynchronously via EventHandler.OnAuthResult.
	Authenticate(token string) error

	// Join requests joining the meeting as a video-off participant. Progress
	// is delivered asynchronously via EventHandler.OnMeetingStatus.
	Join(meetingID, password, displayName string) error

	// Leave requests leaving the current meeting.
	Leave() error

	// JoinAudio connects the bot to the meeting's audio channel.
	JoinAudio() error

	// MuteSelf mutes the bot's own microphone (listen-only mode).
	MuteSelf() error

	// UserInfo looks up live metadata for a participant id.
	UserInfo(id uint32) (ParticipantInfo, bool)

	// Participants returns the ids of everyone currently in the meeting.
	Participants() []uint32

	// SubscribeAudio starts raw audio delivery to the given sink.
	SubscribeAudio(sink AudioSink) error

	// UnsubscribeAudio stops raw audio delivery.
	UnsubscribeAudio() error

	// Cleanup releases platform resources. Safe to call more than once.
	Cleanup()
}

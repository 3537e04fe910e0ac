// Package platformtest provides an in-memory platform.SDK double for tests.
package platformtest

import (
	"sync"

	"github.com/showheysas/tech0notta/internal/platform"
)

// Fake is a scriptable platform.SDK implementation. Tests configure the user
// directory and error injections, then drive the bot with the Emit helpers.
type Fake struct {
	mu sync.Mutex

	handler platform.EventHandler
	sink    platform.AudioSink

	// Error injection
	InitErr      error
	AuthErr      error
	JoinErr      error
	SubscribeErr error

	// Live participant directory served by UserInfo/Participants
	Users map[uint32]platform.ParticipantInfo

	// Call counters
	InitCalls        int
	AuthCalls        int
	JoinCalls        int
	LeaveCalls       int
	JoinAudioCalls   int
	MuteSelfCalls    int
	SubscribeCalls   int
	UnsubscribeCalls int
	CleanupCalls     int

	// Last request parameters
	LastToken       string
	LastMeetingID   string
	LastPassword    string
	LastDisplayName string
}

// New creates a Fake with an empty participant directory.
func New() *Fake {
	return &Fake{Users: make(map[uint32]platform.ParticipantInfo)}
}

func (f *Fake) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InitCalls++
	return f.InitErr
}

func (f *Fake) SetEventHandler(h platform.EventHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *Fake) Authenticate(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthCalls++
	f.LastToken = token
	return f.AuthErr
}

func (f *Fake) Join(meetingID, password, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JoinCalls++
	f.LastMeetingID = meetingID
	f.LastPassword = password
	f.LastDisplayName = displayName
	return f.JoinErr
}

func (f *Fake) Leave() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LeaveCalls++
	return nil
}

func (f *Fake) JoinAudio() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JoinAudioCalls++
	return nil
}

func (f *Fake) MuteSelf() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MuteSelfCalls++
	return nil
}

func (f *Fake) UserInfo(id uint32) (platform.ParticipantInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.Users[id]
	return info, ok
}

func (f *Fake) Participants() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint32, 0, len(f.Users))
	for id := range f.Users {
		ids = append(ids, id)
	}
	return ids
}

func (f *Fake) SubscribeAudio(sink platform.AudioSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SubscribeCalls++
	if f.SubscribeErr != nil {
		return f.SubscribeErr
	}
	f.sink = sink
	return nil
}

func (f *Fake) UnsubscribeAudio() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UnsubscribeCalls++
	f.sink = nil
	return nil
}

func (f *Fake) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CleanupCalls++
}

// AddUser inserts a participant into the live directory.
func (f *Fake) AddUser(info platform.ParticipantInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Users[info.ID] = info
}

// RemoveUser removes a participant from the live directory.
func (f *Fake) RemoveUser(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Users, id)
}

// RenameUser changes a participant's name in the live directory.
func (f *Fake) RenameUser(id uint32, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.Users[id]
	info.ID = id
	info.Name = name
	f.Users[id] = info
}

// EmitAuthResult delivers an authentication result to the registered handler.
func (f *Fake) EmitAuthResult(result platform.AuthResult) {
	if h := f.currentHandler(); h != nil {
		h.OnAuthResult(result)
	}
}

// EmitStatus delivers a meeting status transition to the registered handler.
func (f *Fake) EmitStatus(status platform.Status, resultCode int) {
	if h := f.currentHandler(); h != nil {
		h.OnMeetingStatus(status, resultCode)
	}
}

// EmitJoined delivers a participant-join notification.
func (f *Fake) EmitJoined(ids ...uint32) {
	if h := f.currentHandler(); h != nil {
		h.OnParticipantsJoined(ids)
	}
}

// EmitLeft delivers a participant-leave notification.
func (f *Fake) EmitLeft(ids ...uint32) {
	if h := f.currentHandler(); h != nil {
		h.OnParticipantsLeft(ids)
	}
}

// EmitRenamed delivers a participant-rename notification.
func (f *Fake) EmitRenamed(ids ...uint32) {
	if h := f.currentHandler(); h != nil {
		h.OnParticipantsRenamed(ids)
	}
}

// EmitFrame delivers a raw audio frame to the subscribed sink, if any.
func (f *Fake) EmitFrame(frame platform.AudioFrame) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink.OnFrame(frame)
	}
}

// Subscribed reports whether an audio sink is currently registered.
func (f *Fake) Subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink != nil
}

func (f *Fake) currentHandler() platform.EventHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler
}

package roster

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
)

// Roster delta actions reported to the backend.
const (
	ActionJoin       = "join"
	ActionLeave      = "leave"
	ActionNameChange = "name_change"
)

// UnknownName is used when the platform cannot resolve a display name.
const UnknownName = "Unknown"

// Delta describes a single roster change.
type Delta struct {
	UserID   uint32
	UserName string
	Action   string
}

// DeltaSink receives roster deltas for delivery to the backend.
// Sends are best-effort, a failed send never affects roster state.
type DeltaSink interface {
	SendRosterDelta(delta Delta) error
}

// Directory resolves participant details from the platform.
type Directory interface {
	UserInfo(id uint32) (platform.ParticipantInfo, bool)
}

// Participant is a roster entry as exposed to the monitoring API.
type Participant struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}

// Roster tracks the participants of the current meeting.
type Roster struct {
	mu           sync.RWMutex
	participants map[uint32]Participant

	dir     Directory
	sink    DeltaSink
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an empty roster backed by the given platform directory.
func New(dir Directory, sink DeltaSink, logger *slog.Logger, m *metrics.Metrics) *Roster {
	return &Roster{
		participants: make(map[uint32]Participant),
		dir:          dir,
		sink:         sink,
		logger:       logger,
		metrics:      m,
	}
}

// Snapshot populates the roster from the full participant list reported at
// join time. The baseline is recorded silently, participants already in the
// meeting produce no deltas. Changes after the snapshot do.
func (r *Roster) Snapshot(ids []uint32) {
	r.mu.Lock()
	for _, id := range ids {
		if _, exists := r.participants[id]; exists {
			continue
		}
		r.participants[id] = r.lookup(id)
	}
	count := len(r.participants)
	r.mu.Unlock()

	r.metrics.RecordParticipantCount(count)
	r.logger.Info("Roster baseline", slog.Int("participants", count))
}

// OnJoin records newly joined participants and emits join deltas.
func (r *Roster) OnJoin(ids []uint32) {
	deltas := make([]Delta, 0, len(ids))

	r.mu.Lock()
	for _, id := range ids {
		if _, exists := r.participants[id]; exists {
			continue
		}
		p := r.lookup(id)
		r.participants[id] = p
		deltas = append(deltas, Delta{UserID: id, UserName: p.Name, Action: ActionJoin})
	}
	count := len(r.participants)
	r.mu.Unlock()

	r.emit(deltas, count)
}

// OnLeave removes participants and emits leave deltas. Unknown ids are
// ignored, the platform can report a leave before we saw the join.
func (r *Roster) OnLeave(ids []uint32) {
	deltas := make([]Delta, 0, len(ids))

	r.mu.Lock()
	for _, id := range ids {
		p, exists := r.participants[id]
		if !exists {
			continue
		}
		delete(r.participants, id)
		deltas = append(deltas, Delta{UserID: id, UserName: p.Name, Action: ActionLeave})
	}
	count := len(r.participants)
	r.mu.Unlock()

	r.emit(deltas, count)
}

// OnRename refreshes display names and emits name_change deltas. A rename
// that leaves the name unchanged emits nothing. A rename for an untracked
// id is treated as a join.
func (r *Roster) OnRename(ids []uint32) {
	deltas := make([]Delta, 0, len(ids))

	r.mu.Lock()
	for _, id := range ids {
		fresh := r.lookup(id)
		current, exists := r.participants[id]
		if !exists {
			r.participants[id] = fresh
			deltas = append(deltas, Delta{UserID: id, UserName: fresh.Name, Action: ActionJoin})
			continue
		}
		if current.Name == fresh.Name {
			continue
		}
		r.participants[id] = fresh
		deltas = append(deltas, Delta{UserID: id, UserName: fresh.Name, Action: ActionNameChange})
	}
	count := len(r.participants)
	r.mu.Unlock()

	r.emit(deltas, count)
}

// NameOf returns the display name for a participant, falling back to the
// platform directory and finally to UnknownName. It never blocks on
// delivery, callers use it on the audio path.
func (r *Roster) NameOf(id uint32) string {
	r.mu.RLock()
	p, exists := r.participants[id]
	r.mu.RUnlock()
	if exists {
		return p.Name
	}

	if info, ok := r.dir.UserInfo(id); ok && info.Name != "" {
		return info.Name
	}
	return UnknownName
}

// Count returns the number of tracked participants.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// All returns the tracked participants sorted by id.
func (r *Roster) All() []Participant {
	r.mu.RLock()
	all := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		all = append(all, p)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Get returns a single tracked participant.
func (r *Roster) Get(id uint32) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.participants[id]
	return p, exists
}

// lookup resolves a participant from the platform directory. Caller holds
// the write lock.
func (r *Roster) lookup(id uint32) Participant {
	name := UnknownName
	isHost := false
	if info, ok := r.dir.UserInfo(id); ok {
		if info.Name != "" {
			name = info.Name
		}
		isHost = info.IsHost
	}
	return Participant{ID: id, Name: name, IsHost: isHost}
}

// emit forwards deltas to the sink outside the roster lock so a slow
// backend never stalls name lookups on the audio path.
func (r *Roster) emit(deltas []Delta, count int) {
	for _, d := range deltas {
		r.metrics.RecordRosterDelta(d.Action, count)

		r.logger.Info("Roster change",
			slog.Uint64("user_id", uint64(d.UserID)),
			slog.String("user_name", d.UserName),
			slog.String("action", d.Action),
			slog.Int("participants", count))

		if r.sink == nil {
			continue
		}
		if err := r.sink.SendRosterDelta(d); err != nil {
			r.logger.Warn("Failed to deliver roster delta",
				slog.Uint64("user_id", uint64(d.UserID)),
				slog.String("action", d.Action),
				slog.String("error", err.Error()))
		}
	}
}

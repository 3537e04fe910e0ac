package audio

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
)

// Flush triggers, used as the metrics label and logged with each flush.
const (
	TriggerSize     = "size"     // Buffer reached the size threshold
	TriggerInterval = "interval" // Oldest buffered bytes exceeded the flush interval
	TriggerLeave    = "leave"    // Speaker left the meeting mid-buffer
	TriggerFinal    = "final"    // Capture stopped, final drain
)

// Chunk is a detached run of PCM bytes from one speaker, ready for delivery.
type Chunk struct {
	SpeakerID   uint32
	SpeakerName string
	Data        []byte
	SampleRate  int
	Channels    int
	Trigger     string
}

// ChunkSender delivers flushed chunks to the backend. Sends are best-effort,
// the buffer is already cleared when the sender runs.
type ChunkSender interface {
	SendAudioChunk(chunk Chunk) error
}

// NameLookup resolves a speaker id to a display name. Implementations must
// not block, it is called on the flush path.
type NameLookup interface {
	NameOf(id uint32) string
}

// Config holds the buffering and flush policy
type Config struct {
	MinFlushBytes int           // Flush as soon as a buffer reaches this size
	FlushInterval time.Duration // Flush buffered bytes older than this
	SweepInterval time.Duration // How often the sweeper checks buffer ages
}

// DefaultConfig returns the production flush policy.
func DefaultConfig() Config {
	return Config{
		MinFlushBytes: 16384,
		FlushInterval: 500 * time.Millisecond,
		SweepInterval: 100 * time.Millisecond,
	}
}

// Manager demultiplexes mixed-speaker audio frames into per-speaker buffers
// and applies the flush policy. It implements platform.AudioSink.
type Manager struct {
	cfg     Config
	sender  ChunkSender
	names   NameLookup
	logger  *slog.Logger
	metrics *metrics.Metrics

	buffers map[uint32]*SpeakerBuffer
	mu      sync.RWMutex

	// Sweeper management
	ctx     context.Context
	cancel  context.CancelFunc
	swept   chan struct{}
	stopped sync.Once
}

// NewManager creates a manager and starts the background sweeper.
func NewManager(cfg Config, sender ChunkSender, names NameLookup, logger *slog.Logger, m *metrics.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	mgr := &Manager{
		cfg:     cfg,
		sender:  sender,
		names:   names,
		logger:  logger,
		metrics: m,
		buffers: make(map[uint32]*SpeakerBuffer),
		ctx:     ctx,
		cancel:  cancel,
		swept:   make(chan struct{}),
	}

	go mgr.startSweepRoutine()

	return mgr
}

// OnFrame ingests one raw audio frame from the platform. Called from the
// platform's capture callback, so it only appends and triggers flushes, the
// send itself never blocks other speakers.
func (m *Manager) OnFrame(frame platform.AudioFrame) {
	if len(frame.Data) == 0 {
		return
	}

	m.metrics.RecordFrame(len(frame.Data))

	buf := m.bufferFor(frame.SpeakerID)
	size := buf.append(frame.Data, frame.SampleRate, frame.Channels)

	// A concurrent FlushOne can detach and unregister the buffer between
	// the lookup and the append. Bytes landing after the detach would never
	// be swept, so drain the orphaned buffer here.
	if !m.registered(frame.SpeakerID, buf) {
		m.flush(buf, TriggerLeave)
		return
	}

	if size >= m.cfg.MinFlushBytes {
		m.flush(buf, TriggerSize)
	} else if buf.age() >= m.cfg.FlushInterval {
		m.flush(buf, TriggerInterval)
	}
}

// bufferFor returns the buffer for a speaker, creating it on first audio.
func (m *Manager) bufferFor(speakerID uint32) *SpeakerBuffer {
	m.mu.RLock()
	buf, exists := m.buffers[speakerID]
	m.mu.RUnlock()
	if exists {
		return buf
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if buf, exists = m.buffers[speakerID]; exists {
		return buf
	}

	buf = newSpeakerBuffer(speakerID, m.cfg.MinFlushBytes*2)
	m.buffers[speakerID] = buf

	m.logger.Info("New speaker",
		slog.Uint64("speaker_id", uint64(speakerID)),
		slog.Int("active_buffers", len(m.buffers)))
	m.metrics.RecordNewSpeaker(len(m.buffers))

	return buf
}

// registered reports whether buf is still the live buffer for the speaker.
func (m *Manager) registered(speakerID uint32, buf *SpeakerBuffer) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffers[speakerID] == buf
}

// FlushOne drains and removes a single speaker's buffer, used when a
// participant leaves mid-utterance. No-op for speakers without a buffer.
func (m *Manager) FlushOne(speakerID uint32) {
	m.mu.Lock()
	buf, exists := m.buffers[speakerID]
	if exists {
		delete(m.buffers, speakerID)
	}
	remaining := len(m.buffers)
	m.mu.Unlock()

	if !exists {
		return
	}

	m.flush(buf, TriggerLeave)
	m.metrics.ActiveSpeakerBuffers.Set(float64(remaining))
}

// FlushAll drains every buffer. Buffers stay registered so a speaker that
// talks again reuses its slot. Empty buffers produce no sends.
func (m *Manager) FlushAll() {
	for _, buf := range m.snapshot() {
		m.flush(buf, TriggerFinal)
	}
}

// Stop halts the sweeper and drains all remaining audio. Safe to call more
// than once.
func (m *Manager) Stop() {
	m.stopped.Do(func() {
		m.cancel()
		<-m.swept
		m.FlushAll()

		m.mu.RLock()
		remaining := len(m.buffers)
		m.mu.RUnlock()
		m.logger.Info("Audio manager stopped", slog.Int("speaker_buffers", remaining))
	})
}

// Count returns the number of active speaker buffers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.buffers)
}

// Stats returns per-speaker buffer statistics sorted by speaker id.
func (m *Manager) Stats() []BufferStats {
	bufs := m.snapshot()

	stats := make([]BufferStats, 0, len(bufs))
	for _, buf := range bufs {
		stats = append(stats, buf.stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].SpeakerID < stats[j].SpeakerID })
	return stats
}

// flush detaches the buffered bytes and hands them to the sender. The send
// mutex keeps same-speaker chunks in order while flushes for different
// speakers run concurrently.
func (m *Manager) flush(buf *SpeakerBuffer, trigger string) {
	buf.sendMu.Lock()
	defer buf.sendMu.Unlock()

	data, sampleRate, channels := buf.detach()
	if len(data) == 0 {
		return
	}

	m.metrics.RecordFlush(trigger, len(data))

	chunk := Chunk{
		SpeakerID:   buf.speakerID,
		SpeakerName: m.names.NameOf(buf.speakerID),
		Data:        data,
		SampleRate:  sampleRate,
		Channels:    channels,
		Trigger:     trigger,
	}

	if m.sender == nil {
		return
	}
	if err := m.sender.SendAudioChunk(chunk); err != nil {
		m.logger.Warn("Failed to deliver audio chunk",
			slog.Uint64("speaker_id", uint64(chunk.SpeakerID)),
			slog.Int("size_bytes", len(chunk.Data)),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
	}
}

// snapshot copies the buffer set so flushes run without the collection lock.
func (m *Manager) snapshot() []*SpeakerBuffer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bufs := make([]*SpeakerBuffer, 0, len(m.buffers))
	for _, buf := range m.buffers {
		bufs = append(bufs, buf)
	}
	return bufs
}

// startSweepRoutine flushes buffers whose bytes age out between frames. A
// speaker that goes quiet mid-buffer would otherwise hold audio forever.
func (m *Manager) startSweepRoutine() {
	defer close(m.swept)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.logger.Debug("Buffer sweep routine started",
		slog.Duration("flush_interval", m.cfg.FlushInterval),
		slog.Duration("sweep_interval", m.cfg.SweepInterval))

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			for _, buf := range m.snapshot() {
				if buf.size() > 0 && buf.age() >= m.cfg.FlushInterval {
					m.flush(buf, TriggerInterval)
				}
			}
		}
	}
}

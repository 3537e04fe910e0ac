package audio

import (
	"sync"
	"time"
)

// SpeakerBuffer accumulates raw PCM bytes for a single speaker between
// flushes. Two locks protect it: mu guards the buffered bytes and format
// metadata, sendMu serializes sends so chunks from the same speaker never
// reorder. Detachment happens under mu, the actual HTTP send happens
// outside it so a slow backend never blocks frame ingestion.
type SpeakerBuffer struct {
	speakerID uint32

	// Audio format, fixed by the first frame
	sampleRate int
	channels   int

	data      []byte    // Accumulated PCM bytes since last flush
	lastFlush time.Time // When the buffer was last detached

	// Lifetime counters for monitoring
	totalBytes   uint64
	totalFlushes uint64

	mu     sync.Mutex
	sendMu sync.Mutex
}

// BufferStats represents per-speaker buffer statistics for monitoring
type BufferStats struct {
	SpeakerID     uint32    `json:"speaker_id"`
	BufferedBytes int       `json:"buffered_bytes"`
	SampleRate    int       `json:"sample_rate"`
	Channels      int       `json:"channels"`
	TotalBytes    uint64    `json:"total_bytes"`
	TotalFlushes  uint64    `json:"total_flushes"`
	LastFlush     time.Time `json:"last_flush"`
}

// newSpeakerBuffer creates a buffer for a speaker. The flush clock starts
// at creation so a short burst followed by silence still flushes on time.
func newSpeakerBuffer(speakerID uint32, capacityHint int) *SpeakerBuffer {
	return &SpeakerBuffer{
		speakerID: speakerID,
		data:      make([]byte, 0, capacityHint),
		lastFlush: time.Now(),
	}
}

// append adds PCM bytes and returns the buffered size after the append.
// The first frame fixes the audio format for the buffer's lifetime.
func (b *SpeakerBuffer) append(data []byte, sampleRate, channels int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sampleRate == 0 {
		b.sampleRate = sampleRate
		b.channels = channels
	}
	b.data = append(b.data, data...)
	b.totalBytes += uint64(len(data))
	return len(b.data)
}

// detach takes ownership of the buffered bytes and resets the flush clock.
// Returns nil data when the buffer is empty.
func (b *SpeakerBuffer) detach() (data []byte, sampleRate, channels int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil, b.sampleRate, b.channels
	}

	data = b.data
	sampleRate = b.sampleRate
	channels = b.channels

	b.data = make([]byte, 0, cap(data))
	b.lastFlush = time.Now()
	b.totalFlushes++
	return data, sampleRate, channels
}

// size returns the currently buffered byte count.
func (b *SpeakerBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// age returns how long ago the buffer was last flushed.
func (b *SpeakerBuffer) age() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.lastFlush)
}

// stats returns a snapshot of the buffer state for monitoring.
func (b *SpeakerBuffer) stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		SpeakerID:     b.speakerID,
		BufferedBytes: len(b.data),
		SampleRate:    b.sampleRate,
		Channels:      b.channels,
		TotalBytes:    b.totalBytes,
		TotalFlushes:  b.totalFlushes,
		LastFlush:     b.lastFlush,
	}
}

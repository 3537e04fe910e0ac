package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/platform"
)

// captureSender records delivered chunks.
type captureSender struct {
	mu     sync.Mutex
	chunks []Chunk
	err    error
}

func (s *captureSender) SendAudioChunk(c Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c)
	return s.err
}

func (s *captureSender) all() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// staticNames resolves every speaker to a deterministic name.
type staticNames struct{}

func (staticNames) NameOf(id uint32) string {
	return fmt.Sprintf("user-%d", id)
}

func newTestManager(t *testing.T, cfg Config) (*Manager, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	mgr := NewManager(cfg, sender, staticNames{}, logger, m)
	t.Cleanup(mgr.Stop)
	return mgr, sender
}

func frame(speakerID uint32, data []byte) platform.AudioFrame {
	return platform.AudioFrame{SpeakerID: speakerID, Data: data, SampleRate: 32000, Channels: 1}
}

func TestSizeTriggeredFlush(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())

	payload := make([]byte, 20*1024)
	for i := range payload {
		payload[i] = byte(i)
	}
	mgr.OnFrame(frame(1, payload))

	chunks := sender.all()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Trigger != TriggerSize {
		t.Errorf("expected trigger %q, got %q", TriggerSize, c.Trigger)
	}
	if !bytes.Equal(c.Data, payload) {
		t.Errorf("chunk data does not match input (%d vs %d bytes)", len(c.Data), len(payload))
	}
	if c.SpeakerName != "user-1" {
		t.Errorf("expected resolved name, got %q", c.SpeakerName)
	}
	if c.SampleRate != 32000 || c.Channels != 1 {
		t.Errorf("unexpected format %d/%d", c.SampleRate, c.Channels)
	}
}

func TestBelowThresholdDoesNotFlush(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlushInterval = time.Hour
	cfg.SweepInterval = time.Hour
	mgr, sender := newTestManager(t, cfg)

	mgr.OnFrame(frame(1, make([]byte, 2048)))

	if got := len(sender.all()); got != 0 {
		t.Errorf("expected no chunks below threshold, got %d", got)
	}
	if mgr.Count() != 1 {
		t.Errorf("expected 1 active buffer, got %d", mgr.Count())
	}
}

func TestTimeTriggeredFlush(t *testing.T) {
	cfg := Config{MinFlushBytes: 16384, FlushInterval: 50 * time.Millisecond, SweepInterval: 10 * time.Millisecond}
	mgr, sender := newTestManager(t, cfg)

	mgr.OnFrame(frame(1, make([]byte, 2048)))

	// The sweeper must flush even though no further frames arrive.
	deadline := time.Now().Add(2 * time.Second)
	for len(sender.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	chunks := sender.all()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 time-triggered chunk, got %d", len(chunks))
	}
	if chunks[0].Trigger != TriggerInterval {
		t.Errorf("expected trigger %q, got %q", TriggerInterval, chunks[0].Trigger)
	}
	if len(chunks[0].Data) != 2048 {
		t.Errorf("expected 2048 bytes, got %d", len(chunks[0].Data))
	}
}

func TestFlushAllDrainsEveryBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlushInterval = time.Hour
	cfg.SweepInterval = time.Hour
	mgr, sender := newTestManager(t, cfg)

	mgr.OnFrame(frame(1, make([]byte, 100)))
	mgr.OnFrame(frame(2, make([]byte, 200)))
	mgr.OnFrame(frame(3, make([]byte, 300)))

	mgr.FlushAll()

	chunks := sender.all()
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	sizes := make(map[uint32]int)
	for _, c := range chunks {
		if c.Trigger != TriggerFinal {
			t.Errorf("expected trigger %q, got %q", TriggerFinal, c.Trigger)
		}
		sizes[c.SpeakerID] = len(c.Data)
	}
	if sizes[1] != 100 || sizes[2] != 200 || sizes[3] != 300 {
		t.Errorf("unexpected chunk sizes: %v", sizes)
	}

	// A second drain has nothing left to send.
	mgr.FlushAll()
	if got := len(sender.all()); got != 3 {
		t.Errorf("expected no additional chunks, got %d total", got)
	}
}

func TestFlushAllEmptyIsNoop(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())

	mgr.FlushAll()

	if got := len(sender.all()); got != 0 {
		t.Errorf("expected no chunks from empty manager, got %d", got)
	}
}

func TestFlushOnePartialBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlushInterval = time.Hour
	cfg.SweepInterval = time.Hour
	mgr, sender := newTestManager(t, cfg)

	mgr.OnFrame(frame(1, make([]byte, 4096)))
	mgr.FlushOne(1)

	chunks := sender.all()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Trigger != TriggerLeave {
		t.Errorf("expected trigger %q, got %q", TriggerLeave, chunks[0].Trigger)
	}
	if len(chunks[0].Data) != 4096 {
		t.Errorf("expected 4096 bytes, got %d", len(chunks[0].Data))
	}
	if mgr.Count() != 0 {
		t.Errorf("expected buffer removed after leave, got %d", mgr.Count())
	}
}

func TestFlushOneUnknownSpeakerIsNoop(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())

	mgr.FlushOne(99)

	if got := len(sender.all()); got != 0 {
		t.Errorf("expected no chunks, got %d", got)
	}
}

func TestSenderErrorClearsBuffer(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())
	sender.err = fmt.Errorf("backend unreachable")

	mgr.OnFrame(frame(1, make([]byte, 20*1024)))

	// The bytes were detached before the failed send, so nothing lingers.
	stats := mgr.Stats()
	if len(stats) != 1 {
		t.Fatalf("expected 1 buffer, got %d", len(stats))
	}
	if stats[0].BufferedBytes != 0 {
		t.Errorf("expected empty buffer after failed send, got %d bytes", stats[0].BufferedBytes)
	}
}

func TestByteConservationAcrossFlushes(t *testing.T) {
	cfg := Config{MinFlushBytes: 1024, FlushInterval: time.Hour, SweepInterval: time.Hour}
	mgr, sender := newTestManager(t, cfg)

	// Interleave frames from three speakers with distinct payload bytes.
	inputs := make(map[uint32][]byte)
	for i := 0; i < 40; i++ {
		for speaker := uint32(1); speaker <= 3; speaker++ {
			payload := bytes.Repeat([]byte{byte(speaker)}, 100)
			inputs[speaker] = append(inputs[speaker], payload...)
			mgr.OnFrame(frame(speaker, payload))
		}
	}
	mgr.FlushAll()

	got := make(map[uint32][]byte)
	for _, c := range sender.all() {
		got[c.SpeakerID] = append(got[c.SpeakerID], c.Data...)
	}
	for speaker, want := range inputs {
		if !bytes.Equal(got[speaker], want) {
			t.Errorf("speaker %d: reassembled stream mismatch (%d vs %d bytes)",
				speaker, len(got[speaker]), len(want))
		}
	}
}

func TestConcurrentSpeakers(t *testing.T) {
	cfg := Config{MinFlushBytes: 2048, FlushInterval: time.Hour, SweepInterval: time.Hour}
	mgr, sender := newTestManager(t, cfg)

	const speakers = 8
	const framesPerSpeaker = 50

	var wg sync.WaitGroup
	for speaker := uint32(1); speaker <= speakers; speaker++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			for i := 0; i < framesPerSpeaker; i++ {
				mgr.OnFrame(frame(id, bytes.Repeat([]byte{byte(id)}, 100)))
			}
		}(speaker)
	}
	wg.Wait()
	mgr.FlushAll()

	totals := make(map[uint32]int)
	for _, c := range sender.all() {
		for _, b := range c.Data {
			if uint32(b) != c.SpeakerID {
				t.Fatalf("speaker %d chunk contains byte from speaker %d", c.SpeakerID, b)
			}
		}
		totals[c.SpeakerID] += len(c.Data)
	}
	for speaker := uint32(1); speaker <= speakers; speaker++ {
		if totals[speaker] != framesPerSpeaker*100 {
			t.Errorf("speaker %d: expected %d bytes, got %d", speaker, framesPerSpeaker*100, totals[speaker])
		}
	}
}

func TestConcurrentLeaveFlushLosesNoBytes(t *testing.T) {
	cfg := Config{MinFlushBytes: 1 << 20, FlushInterval: time.Hour, SweepInterval: time.Hour}
	mgr, sender := newTestManager(t, cfg)

	const frames = 500
	const frameSize = 128

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			mgr.OnFrame(frame(7, make([]byte, frameSize)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			mgr.FlushOne(7)
		}
	}()
	wg.Wait()
	mgr.Stop()

	total := 0
	for _, c := range sender.all() {
		if c.SpeakerID != 7 {
			t.Fatalf("unexpected speaker %d in chunk", c.SpeakerID)
		}
		total += len(c.Data)
	}
	if total != frames*frameSize {
		t.Errorf("expected %d bytes delivered, got %d", frames*frameSize, total)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())

	mgr.OnFrame(frame(1, make([]byte, 512)))
	mgr.Stop()
	mgr.Stop()

	chunks := sender.all()
	if len(chunks) != 1 {
		t.Fatalf("expected 1 final chunk, got %d", len(chunks))
	}
	if chunks[0].Trigger != TriggerFinal {
		t.Errorf("expected trigger %q, got %q", TriggerFinal, chunks[0].Trigger)
	}
}

func TestEmptyFrameIgnored(t *testing.T) {
	mgr, sender := newTestManager(t, DefaultConfig())

	mgr.OnFrame(frame(1, nil))

	if mgr.Count() != 0 {
		t.Errorf("expected no buffers for empty frame, got %d", mgr.Count())
	}
	if got := len(sender.all()); got != 0 {
		t.Errorf("expected no chunks, got %d", got)
	}
}

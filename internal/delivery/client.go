package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/showheysas/tech0notta/internal/audio"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/roster"
)

// Config contains backend delivery configuration
type Config struct {
	BaseURL       string        // Backend base URL, empty disables delivery
	AudioTimeout  time.Duration // Timeout for audio chunk posts
	RosterTimeout time.Duration // Timeout for roster delta posts
}

// rosterPayload is the JSON body posted to the participant endpoint.
type rosterPayload struct {
	UserID   uint32 `json:"user_id"`
	UserName string `json:"user_name"`
	Action   string `json:"action"`
}

// ClientStats represents delivery statistics for monitoring
type ClientStats struct {
	AudioSent        uint64  `json:"audio_sent"`
	AudioFailed      uint64  `json:"audio_failed"`
	AudioSuccessRate float64 `json:"audio_success_rate"`
	AudioBytesSent   uint64  `json:"audio_bytes_sent"`
	RosterSent       uint64  `json:"roster_sent"`
	RosterFailed     uint64  `json:"roster_failed"`
}

// Client posts chunks and deltas to the backend. It implements
// audio.ChunkSender and roster.DeltaSink.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics
	audioSent      uint64
	audioFailed    uint64
	audioBytesSent uint64
	rosterSent     uint64
	rosterFailed   uint64

	mu sync.RWMutex
}

// NewClient creates a backend delivery client. An empty base URL yields a
// disabled client whose sends succeed without network traffic, used for
// init-only runs.
func NewClient(config Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	if config.AudioTimeout <= 0 {
		config.AudioTimeout = 5 * time.Second
	}
	if config.RosterTimeout <= 0 {
		config.RosterTimeout = 2 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.BaseURL == "" {
		logger.Warn("No backend URL configured, delivery disabled")
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  logger,
		metrics: m,
	}
}

// Enabled reports whether the client has a backend to talk to.
func (c *Client) Enabled() bool {
	return c.config.BaseURL != ""
}

// SendAudioChunk posts one chunk as multipart form data to {base}/audio.
// The audio bytes travel as a file part named audio_data.
func (c *Client) SendAudioChunk(chunk audio.Chunk) error {
	if !c.Enabled() {
		return nil
	}

	requestID := uuid.NewString()
	body, contentType, err := createAudioForm(chunk, requestID)
	if err != nil {
		c.recordAudio(false, 0, 0)
		return fmt.Errorf("failed to build multipart form: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.AudioTimeout)
	defer cancel()

	start := time.Now()
	err = c.post(ctx, c.config.BaseURL+"/audio", contentType, body)
	elapsed := time.Since(start)

	if err != nil {
		c.recordAudio(false, 0, elapsed)
		return fmt.Errorf("audio chunk post failed: %w", err)
	}

	c.recordAudio(true, len(chunk.Data), elapsed)
	c.logger.Debug("Audio chunk delivered",
		slog.Uint64("speaker_id", uint64(chunk.SpeakerID)),
		slog.Int("size_bytes", len(chunk.Data)),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", elapsed))
	return nil
}

// SendRosterDelta posts one roster change as JSON to {base}/participant.
func (c *Client) SendRosterDelta(delta roster.Delta) error {
	if !c.Enabled() {
		return nil
	}

	payload, err := json.Marshal(rosterPayload{
		UserID:   delta.UserID,
		UserName: delta.UserName,
		Action:   delta.Action,
	})
	if err != nil {
		c.recordRoster(false)
		return fmt.Errorf("failed to encode roster delta: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.RosterTimeout)
	defer cancel()

	if err := c.post(ctx, c.config.BaseURL+"/participant", "application/json", bytes.NewReader(payload)); err != nil {
		c.recordRoster(false)
		return fmt.Errorf("roster delta post failed: %w", err)
	}

	c.recordRoster(true)
	return nil
}

// GetStats returns current delivery statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := ClientStats{
		AudioSent:      c.audioSent,
		AudioFailed:    c.audioFailed,
		AudioBytesSent: c.audioBytesSent,
		RosterSent:     c.rosterSent,
		RosterFailed:   c.rosterFailed,
	}
	if total := c.audioSent + c.audioFailed; total > 0 {
		stats.AudioSuccessRate = float64(c.audioSent) / float64(total) * 100
	}
	return stats
}

// post performs a single POST and treats any non-2xx status as an error.
func (c *Client) post(ctx context.Context, url, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// createAudioForm builds the multipart body for one audio chunk.
func createAudioForm(chunk audio.Chunk, requestID string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"user_id":     fmt.Sprintf("%d", chunk.SpeakerID),
		"user_name":   chunk.SpeakerName,
		"request_id":  requestID,
		"sample_rate": fmt.Sprintf("%d", chunk.SampleRate),
		"channels":    fmt.Sprintf("%d", chunk.Channels),
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	// CreateFormFile hardcodes application/octet-stream, build the part
	// header by hand so the payload is labeled as raw audio.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="audio_data"; filename="%s.raw"`, requestID))
	header.Set("Content-Type", "audio/raw")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := part.Write(chunk.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) recordAudio(ok bool, sizeBytes int, elapsed time.Duration) {
	c.mu.Lock()
	if ok {
		c.audioSent++
		c.audioBytesSent += uint64(sizeBytes)
	} else {
		c.audioFailed++
	}
	c.mu.Unlock()

	c.metrics.RecordAudioSend(ok, sizeBytes, elapsed.Seconds())
}

func (c *Client) recordRoster(ok bool) {
	c.mu.Lock()
	if ok {
		c.rosterSent++
	} else {
		c.rosterFailed++
	}
	c.mu.Unlock()

	c.metrics.RecordRosterSend(ok)
}

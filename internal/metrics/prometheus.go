package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the meeting relay bot
type Metrics struct {
	// Audio ingestion metrics
	FramesReceived       prometheus.Counter
	FrameBytes           prometheus.Counter
	SpeakersObserved     prometheus.Counter
	ActiveSpeakerBuffers prometheus.Gauge

	// Flush metrics
	Flushes    *prometheus.CounterVec
	FlushBytes prometheus.Histogram

	// Delivery metrics
	AudioSends         prometheus.Counter
	AudioSendFailures  prometheus.Counter
	AudioSendDuration  prometheus.Histogram
	AudioBytesSent     prometheus.Counter
	RosterSends        prometheus.Counter
	RosterSendFailures prometheus.Counter

	// Roster metrics
	Participants prometheus.Gauge
	RosterDeltas *prometheus.CounterVec

	// Lifecycle metrics
	StateTransitions *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates all metrics and registers them with the given registerer.
// Production code passes prometheus.DefaultRegisterer; tests pass a fresh
// prometheus.NewRegistry so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Audio ingestion metrics
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_audio_frames_received_total",
			Help: "Total number of raw audio frames received from the platform",
		}),
		FrameBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_audio_frame_bytes_total",
			Help: "Total raw audio bytes received from the platform",
		}),
		SpeakersObserved: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_speakers_observed_total",
			Help: "Total number of distinct speakers that produced audio",
		}),
		ActiveSpeakerBuffers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_speaker_buffers",
			Help: "Current number of per-speaker audio buffers",
		}),

		// Flush metrics
		Flushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_buffer_flushes_total",
			Help: "Total number of buffer flushes by trigger",
		}, []string{"trigger"}),
		FlushBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_flush_bytes",
			Help:    "Size of flushed audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 10), // 1KB to ~1MB
		}),

		// Delivery metrics
		AudioSends: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_audio_sends_total",
			Help: "Total number of audio chunk deliveries attempted",
		}),
		AudioSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_audio_send_failures_total",
			Help: "Total number of failed audio chunk deliveries",
		}),
		AudioSendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_audio_send_duration_seconds",
			Help:    "Duration of audio chunk deliveries",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		}),
		AudioBytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_audio_bytes_sent_total",
			Help: "Total audio bytes successfully delivered to the backend",
		}),
		RosterSends: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_roster_sends_total",
			Help: "Total number of roster delta deliveries attempted",
		}),
		RosterSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_roster_send_failures_total",
			Help: "Total number of failed roster delta deliveries",
		}),

		// Roster metrics
		Participants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_participants",
			Help: "Current number of participants in the roster",
		}),
		RosterDeltas: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_roster_deltas_total",
			Help: "Total number of roster deltas emitted by action",
		}, []string{"action"}),

		// Lifecycle metrics
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_state_transitions_total",
			Help: "Total number of session lifecycle state transitions",
		}, []string{"state"}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrame records one received raw audio frame
func (m *Metrics) RecordFrame(sizeBytes int) {
	m.FramesReceived.Inc()
	m.FrameBytes.Add(float64(sizeBytes))
}

// RecordNewSpeaker records a newly observed speaker
func (m *Metrics) RecordNewSpeaker(activeBuffers int) {
	m.SpeakersObserved.Inc()
	m.ActiveSpeakerBuffers.Set(float64(activeBuffers))
}

// RecordFlush records a buffer flush with its trigger and size
func (m *Metrics) RecordFlush(trigger string, sizeBytes int) {
	m.Flushes.WithLabelValues(trigger).Inc()
	m.FlushBytes.Observe(float64(sizeBytes))
}

// RecordAudioSend records an audio delivery attempt
func (m *Metrics) RecordAudioSend(ok bool, sizeBytes int, durationSeconds float64) {
	m.AudioSends.Inc()
	m.AudioSendDuration.Observe(durationSeconds)
	if ok {
		m.AudioBytesSent.Add(float64(sizeBytes))
	} else {
		m.AudioSendFailures.Inc()
	}
}

// RecordRosterSend records a roster delta delivery attempt
func (m *Metrics) RecordRosterSend(ok bool) {
	m.RosterSends.Inc()
	if !ok {
		m.RosterSendFailures.Inc()
	}
}

// RecordRosterDelta records an emitted roster delta
func (m *Metrics) RecordRosterDelta(action string, participants int) {
	m.RosterDeltas.WithLabelValues(action).Inc()
	m.Participants.Set(float64(participants))
}

// RecordParticipantCount updates the participant gauge without counting a delta
func (m *Metrics) RecordParticipantCount(participants int) {
	m.Participants.Set(float64(participants))
}

// RecordStateTransition records a lifecycle state transition
func (m *Metrics) RecordStateTransition(state string) {
	m.StateTransitions.WithLabelValues(state).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

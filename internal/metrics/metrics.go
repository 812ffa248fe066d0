// Package metrics exposes Prometheus instrumentation for the recording
// core: active sessions, composited/mixed frame throughput, mixer
// underruns, encoder flush latency, and room participant counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ActiveSessions is the number of RecordingSessions currently in the
// registry (Negotiating, Recording, or Stopping).
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "classcore_active_sessions",
	Help: "RecordingSessions currently tracked in the session registry.",
})

// ComposedFrames counts video ticks for which the compositor produced a
// ComposedFrame, labeled by session id.
var ComposedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classcore_composed_frames_total",
	Help: "ComposedFrames emitted by the video compositor.",
}, []string{"session_id"})

// MixedFrames counts audio ticks for which the mixer produced a
// MixedFrame, labeled by session id.
var MixedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classcore_mixed_frames_total",
	Help: "MixedFrames emitted by the audio mixer.",
}, []string{"session_id"})

// MixerUnderruns counts audio sources that had fewer than 960 samples
// ready at a mix tick and so contributed zero to that frame.
var MixerUnderruns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classcore_mixer_underruns_total",
	Help: "Audio sources with insufficient buffered samples at a mix tick.",
}, []string{"session_id"})

// EncoderFlushDuration tracks how long FlushAndClose takes per session.
var EncoderFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "classcore_encoder_flush_duration_seconds",
	Help:    "Time spent finalizing a session's container file.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
})

// RoomParticipants is the number of participants currently held across
// all rooms in the Room Hub.
var RoomParticipants = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "classcore_room_participants",
	Help: "Participants currently registered across all rooms.",
})

// Handler returns the Prometheus scrape handler to mount at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

package feedback

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTonesPlayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigscout_feedback_tones_played_total",
		Help: "Tones actually written to the audio device, by feedback mode.",
	}, []string{"mode"})
	metricTonesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigscout_feedback_tones_suppressed_total",
		Help: "Tone attempts skipped because sound was suppressed or playback was cancelled.",
	})
	metricPlaybackErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigscout_feedback_playback_errors_total",
		Help: "Audio device write failures. Each suppresses a single tone only.",
	})
	metricLoopIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigscout_feedback_loop_iterations_total",
		Help: "Continuous-feedback loop iterations that saw a sample, by mode.",
	}, []string{"mode"})
)

// Metrics is a point-in-time snapshot of the orchestrator's counters.
// Int64 fields are kept first to mirror the atomic layout they are read from.
type Metrics struct {
	TonesPlayed     int64     `json:"tones_played"`
	TonesSuppressed int64     `json:"tones_suppressed"`
	PlaybackErrors  int64     `json:"playback_errors"`
	HapticFires     int64     `json:"haptic_fires"`
	LoopIterations  int64     `json:"loop_iterations"`
	LastSampleTime  time.Time `json:"last_sample_time"`
}

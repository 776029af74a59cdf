package haptic

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/sigscout/sigscout/internal/logging"
	"github.com/sigscout/sigscout/internal/signal"
)

// DefaultCooldown is the minimum gap between throttled pattern firings.
const DefaultCooldown = 500 * time.Millisecond

var (
	metricFires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigscout_haptic_fires_total",
		Help: "Vibration patterns actually dispatched to the device, by pattern name.",
	}, []string{"pattern"})
	metricCooldownSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigscout_haptic_cooldown_suppressed_total",
		Help: "Throttled fire attempts dropped because the cooldown had not elapsed.",
	})
)

// Renderer gates vibration dispatch behind the device capability check and a
// cooldown. Interference- and quality-based fires share one cooldown
// timestamp; discrete event patterns and custom patterns bypass it.
type Renderer struct {
	dev      Device
	cooldown time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastFire time.Time
}

// NewRenderer creates a renderer over dev. A non-positive cooldown falls back
// to DefaultCooldown.
func NewRenderer(dev Device, cooldown time.Duration) *Renderer {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Renderer{
		dev:      dev,
		cooldown: cooldown,
		logger:   logging.GetDefaultLogger().With().Str("component", "haptic-renderer").Logger(),
		now:      time.Now,
	}
}

// FireForInterference selects and dispatches the pattern for an interference
// score, subject to the cooldown. Reports whether a pattern was dispatched.
func (r *Renderer) FireForInterference(score float64) bool {
	if !r.dev.CanVibrate() {
		return false
	}
	sev := SeverityForInterference(signal.ClampFloat(score, 0, 1))
	p, ok := PatternForInterference(sev)
	if !ok {
		return false
	}
	return r.fireThrottled(p)
}

// FireForQuality dispatches the pattern for a raw quality reading, subject to
// the same cooldown timestamp as interference fires.
func (r *Renderer) FireForQuality(quality float64) bool {
	if !r.dev.CanVibrate() {
		return false
	}
	sev := SeverityForQuality(signal.ClampFloat(quality, 0, 1))
	p, ok := PatternForQuality(sev)
	if !ok {
		return false
	}
	return r.fireThrottled(p)
}

// FireEvent dispatches a discrete event pattern immediately. Events are never
// throttled and do not touch the cooldown timestamp.
func (r *Renderer) FireEvent(e Event) bool {
	if !r.dev.CanVibrate() {
		return false
	}
	p, ok := PatternForEvent(e)
	if !ok {
		return false
	}
	r.dispatch(p)
	return true
}

// FireCustom dispatches a caller-supplied pattern, bypassing both the band
// lookup and the cooldown. Mismatched slice lengths are truncated to the
// shorter one; amplitudes are clamped to [0,255].
func (r *Renderer) FireCustom(offsets []time.Duration, amplitudes []int) bool {
	if !r.dev.CanVibrate() {
		return false
	}
	n := len(offsets)
	if len(amplitudes) < n {
		n = len(amplitudes)
	}
	if n == 0 {
		return false
	}
	p := Pattern{
		Name:       "custom",
		Offsets:    make([]time.Duration, n),
		Amplitudes: make([]int, n),
	}
	copy(p.Offsets, offsets[:n])
	for i := 0; i < n; i++ {
		p.Amplitudes[i] = signal.ClampInt(amplitudes[i], 0, 255)
	}
	r.dispatch(p)
	return true
}

// fireThrottled performs the cooldown check-and-update atomically. The
// timestamp moves only on an actual fire, never on a suppressed attempt.
func (r *Renderer) fireThrottled(p Pattern) bool {
	r.mu.Lock()
	now := r.now()
	if !r.lastFire.IsZero() && now.Sub(r.lastFire) < r.cooldown {
		r.mu.Unlock()
		metricCooldownSuppressed.Inc()
		return false
	}
	r.lastFire = now
	r.mu.Unlock()

	r.dispatch(p)
	return true
}

func (r *Renderer) dispatch(p Pattern) {
	metricFires.WithLabelValues(p.Name).Inc()
	if err := r.dev.Vibrate(p); err != nil {
		r.logger.Warn().Err(err).Str("pattern", p.Name).Msg("vibration dispatch failed")
	}
}

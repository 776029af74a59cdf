package feedback

import (
	"time"

	"github.com/sigscout/sigscout/internal/haptic"
	"github.com/sigscout/sigscout/internal/signal"
)

// Config holds every tunable of the feedback engine. The surrounding
// application wires values in; nothing is read from disk or environment.
type Config struct {
	// MinInterval and MaxInterval bound the continuous-loop sleep computed
	// from signal quality.
	MinInterval time.Duration
	MaxInterval time.Duration

	// DefaultPollInterval is the retry sleep when the sampler has no data.
	DefaultPollInterval time.Duration

	// OneShotToneDuration is the tone length for ProvideFeedback;
	// LoopToneDuration the shorter tone used inside the continuous loop.
	OneShotToneDuration time.Duration
	LoopToneDuration    time.Duration

	// HapticThreshold is the interference score above which the continuous
	// loop fires haptic feedback.
	HapticThreshold float64

	// HapticCooldown is the minimum gap between throttled haptic fires.
	HapticCooldown time.Duration
}

// DefaultConfig returns the engine's standard tuning.
func DefaultConfig() Config {
	return Config{
		MinInterval:         100 * time.Millisecond,
		MaxInterval:         1000 * time.Millisecond,
		DefaultPollInterval: 500 * time.Millisecond,
		OneShotToneDuration: 100 * time.Millisecond,
		LoopToneDuration:    50 * time.Millisecond,
		HapticThreshold:     0.3,
		HapticCooldown:      haptic.DefaultCooldown,
	}
}

// FeedbackInterval computes the continuous-loop sleep for a quality reading:
// MinInterval + (1-quality)*(MaxInterval-MinInterval). Better quality means a
// shorter interval and therefore more frequent feedback.
func (c Config) FeedbackInterval(quality float64) time.Duration {
	q := signal.ClampFloat(quality, 0, 1)
	return c.MinInterval + time.Duration((1-q)*float64(c.MaxInterval-c.MinInterval))
}

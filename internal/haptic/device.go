package haptic

import (
	"github.com/rs/zerolog"

	"github.com/sigscout/sigscout/internal/logging"
)

// Device is the vibration output. CanVibrate is the capability gate: when it
// reports false every haptic operation degrades to a silent no-op.
type Device interface {
	CanVibrate() bool
	Vibrate(p Pattern) error
}

// NoopDevice reports no vibration capability. Used on hosts without a haptic
// actuator.
type NoopDevice struct{}

func (NoopDevice) CanVibrate() bool      { return false }
func (NoopDevice) Vibrate(Pattern) error { return nil }

// LogDevice pretends to vibrate by logging each dispatched pattern. Useful
// for the demo binary and for bring-up on hardware without an actuator.
type LogDevice struct {
	logger zerolog.Logger
}

func NewLogDevice() *LogDevice {
	return &LogDevice{logger: logging.GetDefaultLogger().With().Str("component", "haptic-device").Logger()}
}

func (d *LogDevice) CanVibrate() bool { return true }

func (d *LogDevice) Vibrate(p Pattern) error {
	d.logger.Info().
		Str("pattern", p.Name).
		Int("pulses", len(p.Offsets)).
		Msg("vibrate")
	return nil
}

package tone

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigscout/sigscout/internal/logging"
)

// ClickDuration is the length of one geiger-mode click.
const ClickDuration = 30 * time.Millisecond

// Player serializes all tone playback onto one exclusively-owned output
// device. Concurrent callers queue on the internal mutex in FIFO order; no
// two buffers are ever written to the device at the same time.
type Player struct {
	dev    Device
	logger zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPlayer wraps dev in a serialized playback front-end.
func NewPlayer(dev Device) *Player {
	return &Player{
		dev:    dev,
		logger: logging.GetDefaultLogger().With().Str("component", "tone-player").Logger(),
	}
}

// Play synthesizes one tone and writes it to the device, blocking the caller
// for the buffer's playback duration. The suppression gate runs before any
// synthesis work. Cancellation is checked again once the device turn is
// acquired: an in-flight write always runs to completion, but no new buffer
// starts after ctx is cancelled. Returns whether a buffer was actually
// dispatched.
func (p *Player) Play(ctx context.Context, frequencyHz int, duration time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if p.dev.Suppressed() {
		return false, nil
	}

	buf := GenerateBuffer(frequencyHz, duration)
	if len(buf) == 0 {
		return false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || ctx.Err() != nil {
		return false, nil
	}
	if err := p.dev.Write(buf); err != nil {
		return false, err
	}
	return true, nil
}

// PlayStream emits a click per rssi value pulled from next, reusing the same
// device handle for the whole run. Each click's frequency and the spacing to
// the following click both derive from that rssi. Returns when next reports
// exhaustion or ctx is cancelled; playback failures suppress the single click
// and the stream keeps going.
func (p *Player) PlayStream(ctx context.Context, next func() (rssi int, ok bool)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		rssi, ok := next()
		if !ok {
			return nil
		}
		if _, err := p.Play(ctx, FrequencyFromRSSI(rssi), ClickDuration); err != nil {
			p.logger.Warn().Err(err).Int("rssi", rssi).Msg("click playback failed")
		}
		if !sleepCtx(ctx, IntervalFromRSSI(rssi)) {
			return nil
		}
	}
}

// Halt stops in-flight playback best-effort without acquiring the playback
// mutex, so it can interrupt a blocked Write.
func (p *Player) Halt() {
	p.dev.Halt()
}

// Close halts playback, waits for any in-flight write to drain, and releases
// the device. The player is unusable afterward.
func (p *Player) Close() error {
	p.dev.Halt()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.dev.Close()
}

// sleepCtx waits for d or cancellation, reporting false when cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

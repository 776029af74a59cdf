package tone

import (
	"bytes"
	"sync"
	"time"

	"github.com/hajimehoshi/oto/v2"

	"github.com/sigscout/sigscout/internal/logging"
)

// Device is the audio output the synthesizer writes to. Write blocks until
// the buffer has finished playing (or playback was halted); Halt stops any
// in-flight playback best-effort. Suppressed reports the system-wide
// silent/do-not-disturb state and is consulted before any synthesis work.
type Device interface {
	Suppressed() bool
	Write(pcm []int16) error
	Halt()
	Close() error
}

// OtoDevice plays PCM buffers through the system audio output. It owns one
// persistent oto context; each Write opens a short-lived player on it, which
// keeps device-open overhead off the per-tone path without holding an output
// stream between tones.
type OtoDevice struct {
	ctx        *oto.Context
	ready      chan struct{}
	suppressed func() bool

	mu      sync.Mutex
	current oto.Player
	closed  bool
}

// NewOtoDevice opens the system audio output at the engine's PCM format.
// suppressed is the collaborator-provided silent-mode query; nil means never
// suppressed.
func NewOtoDevice(suppressed func() bool) (*OtoDevice, error) {
	ctx, ready, err := oto.NewContext(SampleRate, Channels, BytesPerSample)
	if err != nil {
		return nil, err
	}
	return &OtoDevice{ctx: ctx, ready: ready, suppressed: suppressed}, nil
}

// Suppressed reports whether sound output is currently suppressed
// system-wide.
func (d *OtoDevice) Suppressed() bool {
	if d.suppressed == nil {
		return false
	}
	return d.suppressed()
}

// Write plays one buffer and blocks until it has drained. A device that is
// still warming up drops the buffer silently; feedback is best-effort.
func (d *OtoDevice) Write(pcm []int16) error {
	select {
	case <-d.ready:
	default:
		return nil
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	player := d.ctx.NewPlayer(bytes.NewReader(pcmBytes(pcm)))
	d.current = player
	d.mu.Unlock()

	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	d.mu.Lock()
	d.current = nil
	d.mu.Unlock()
	return player.Close()
}

// Halt pauses any in-flight playback, which unblocks the Write drain loop.
func (d *OtoDevice) Halt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.Pause()
	}
}

// Close halts playback and marks the device unusable. The oto context itself
// has no close; it lives until process exit.
func (d *OtoDevice) Close() error {
	d.Halt()
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// StubDevice is a no-op output for hosts without audio hardware. Writes are
// discarded immediately.
type StubDevice struct{}

func (StubDevice) Suppressed() bool        { return false }
func (StubDevice) Write(pcm []int16) error { return nil }
func (StubDevice) Halt()                   {}
func (StubDevice) Close() error            { return nil }

// NewDevice opens the real audio output, falling back to the stub when the
// host has no usable audio device.
func NewDevice(suppressed func() bool) Device {
	dev, err := NewOtoDevice(suppressed)
	if err != nil {
		logging.GetSubsystemLogger("tone").Warn().Err(err).Msg("audio device unavailable, using stub output")
		return StubDevice{}
	}
	return dev
}

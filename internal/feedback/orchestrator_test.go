package feedback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigscout/sigscout/internal/haptic"
	"github.com/sigscout/sigscout/internal/signal"
	"github.com/sigscout/sigscout/internal/tone"
)

// fakeAudio implements tone.Device, recording every buffer written.
type fakeAudio struct {
	mu         sync.Mutex
	writes     [][]int16
	suppressed bool
	writeErr   error
	closed     bool
}

func (d *fakeAudio) Suppressed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suppressed
}

func (d *fakeAudio) Write(pcm []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	cp := make([]int16, len(pcm))
	copy(cp, pcm)
	d.writes = append(d.writes, cp)
	return nil
}

func (d *fakeAudio) Halt() {}

func (d *fakeAudio) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeAudio) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func (d *fakeAudio) lastWrite() []int16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[len(d.writes)-1]
}

// fakeHaptics implements haptic.Device.
type fakeHaptics struct {
	mu       sync.Mutex
	patterns []haptic.Pattern
}

func (d *fakeHaptics) CanVibrate() bool { return true }

func (d *fakeHaptics) Vibrate(p haptic.Pattern) error {
	d.mu.Lock()
	d.patterns = append(d.patterns, p)
	d.mu.Unlock()
	return nil
}

func (d *fakeHaptics) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.patterns)
}

func (d *fakeHaptics) last() haptic.Pattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.patterns[len(d.patterns)-1]
}

// fastConfig keeps loop timing short so tests stay quick.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MinInterval = 5 * time.Millisecond
	cfg.MaxInterval = 20 * time.Millisecond
	cfg.DefaultPollInterval = 5 * time.Millisecond
	cfg.OneShotToneDuration = 5 * time.Millisecond
	cfg.LoopToneDuration = 2 * time.Millisecond
	return cfg
}

func newTestOrchestrator(cfg Config) (*Orchestrator, *fakeAudio, *fakeHaptics) {
	audio := &fakeAudio{}
	haptics := &fakeHaptics{}
	return New(cfg, audio, haptics), audio, haptics
}

// estimateFrequency recovers a tone's pitch from its zero crossings.
func estimateFrequency(buf []int16) float64 {
	crossings := 0
	prev := int16(0)
	for _, s := range buf {
		if s == 0 {
			continue
		}
		if prev != 0 && (s > 0) != (prev > 0) {
			crossings++
		}
		prev = s
	}
	seconds := float64(len(buf)) / tone.SampleRate
	return float64(crossings) / 2 / seconds
}

func TestOrchestrator(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{"ProvideFeedback", testOrchestratorProvideFeedback},
		{"ChannelIndependence", testOrchestratorChannelIndependence},
		{"ContinuousFeedback", testOrchestratorContinuous},
		{"ContinuousReplacesLoop", testOrchestratorLoopReplacement},
		{"GeigerMode", testOrchestratorGeiger},
		{"GeigerRequiresAudio", testOrchestratorGeigerRequiresAudio},
		{"StopIdempotent", testOrchestratorStop},
		{"Release", testOrchestratorRelease},
		{"DisposedFailsFast", testOrchestratorDisposed},
		{"Events", testOrchestratorEvents},
		{"QualityNotification", testOrchestratorQualityNotification},
		{"PlaybackErrorHook", testOrchestratorPlaybackErrorHook},
		{"IntervalFormula", testFeedbackInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func testOrchestratorProvideFeedback(t *testing.T) {
	o, audio, haptics := newTestOrchestrator(DefaultConfig())
	defer func() { _ = o.Release() }()

	// Strong signal with severe interference: both channels should render.
	s := signal.Sample{RSSI: -40, InterferenceScore: 0.75, Quality: 0.9}
	require.NoError(t, o.ProvideFeedback(s))

	assert.Eventually(t, func() bool {
		return audio.writeCount() == 1 && haptics.count() == 1
	}, time.Second, 5*time.Millisecond)

	// Tone: 100 ms default duration, frequency mapped from RSSI.
	buf := audio.lastWrite()
	assert.Len(t, buf, tone.SampleRate/10)
	want := float64(tone.FrequencyFromRSSI(-40))
	assert.InDelta(t, want, estimateFrequency(buf), want*0.05)

	// Haptics: 0.75 is in the severe band.
	assert.Equal(t, "interference-severe", haptics.last().Name)

	// Diagnostics retain the clamped sample.
	last, ok := o.LastSample()
	require.True(t, ok)
	assert.Equal(t, s, last)

	assert.Eventually(t, func() bool {
		m := o.GetMetrics()
		return m.TonesPlayed == 1 && m.HapticFires == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, o.GetMetrics().LastSampleTime.IsZero())
}

func testOrchestratorChannelIndependence(t *testing.T) {
	o, audio, haptics := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	require.NoError(t, o.SetAudioEnabled(false))
	require.NoError(t, o.ProvideFeedback(signal.Sample{RSSI: -50, InterferenceScore: 0.8, Quality: 0.5}))
	assert.Eventually(t, func() bool { return haptics.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, audio.writeCount(), "audio disabled must not play")

	require.NoError(t, o.SetAudioEnabled(true))
	require.NoError(t, o.SetHapticsEnabled(false))
	require.NoError(t, o.ProvideFeedback(signal.Sample{RSSI: -50, InterferenceScore: 0.8, Quality: 0.5}))
	assert.Eventually(t, func() bool { return audio.writeCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, haptics.count(), "haptics disabled must not fire")
}

func testOrchestratorContinuous(t *testing.T) {
	cfg := fastConfig()
	o, audio, haptics := newTestOrchestrator(cfg)
	defer func() { _ = o.Release() }()

	var mu sync.Mutex
	calls := 0
	provider := func() *signal.Sample {
		mu.Lock()
		calls++
		mu.Unlock()
		return &signal.Sample{RSSI: -45, InterferenceScore: 0.6, Quality: 0.9}
	}

	require.NoError(t, o.StartContinuousFeedback(provider))

	// The loop keeps pulling samples, playing short tones, and firing
	// haptics since interference exceeds the threshold.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3 && audio.writeCount() >= 3 && haptics.count() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// Loop tones use the short duration.
	assert.Len(t, audio.lastWrite(), tone.SampleRate*2/1000)

	require.NoError(t, o.Stop())
	mu.Lock()
	after := calls
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, after, calls, "stopped loop must not pull samples")
	mu.Unlock()
}

func testOrchestratorLoopReplacement(t *testing.T) {
	o, _, _ := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	var mu sync.Mutex
	oldCalls, newCalls := 0, 0
	oldProvider := func() *signal.Sample {
		mu.Lock()
		oldCalls++
		mu.Unlock()
		return &signal.Sample{RSSI: -60, Quality: 0.5}
	}
	newProvider := func() *signal.Sample {
		mu.Lock()
		newCalls++
		mu.Unlock()
		return &signal.Sample{RSSI: -60, Quality: 0.5}
	}

	require.NoError(t, o.StartContinuousFeedback(oldProvider))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return oldCalls >= 2
	}, time.Second, 5*time.Millisecond)

	// Replacing the loop cancels the old one's pending sleep; once the new
	// loop runs, the old provider is never consulted again.
	require.NoError(t, o.StartContinuousFeedback(newProvider))
	mu.Lock()
	frozen := oldCalls
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return newCalls >= 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, frozen, oldCalls, "old loop ran after replacement")
	mu.Unlock()
}

func testOrchestratorGeiger(t *testing.T) {
	o, audio, _ := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	require.NoError(t, o.StartGeigerMode(func() int { return -30 }))

	// Strong signal: clicks arrive at the fastest interval.
	assert.Eventually(t, func() bool {
		return audio.writeCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	// Clicks are pitched at the top of the range for -30 dBm.
	buf := audio.lastWrite()
	want := float64(tone.FrequencyFromRSSI(-30))
	assert.InDelta(t, want, estimateFrequency(buf), want*0.05)

	require.NoError(t, o.Stop())
}

func testOrchestratorGeigerRequiresAudio(t *testing.T) {
	o, audio, _ := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	require.NoError(t, o.SetAudioEnabled(false))
	require.NoError(t, o.StartGeigerMode(func() int { return -30 }))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, audio.writeCount(), "geiger mode must not run with audio disabled")
}

func testOrchestratorStop(t *testing.T) {
	o, _, _ := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	// Stop with no active loop is fine, and repeatable.
	require.NoError(t, o.Stop())
	require.NoError(t, o.Stop())

	require.NoError(t, o.StartContinuousFeedback(func() *signal.Sample { return nil }))
	require.NoError(t, o.Stop())
	require.NoError(t, o.Stop())
}

func testOrchestratorRelease(t *testing.T) {
	o, audio, _ := newTestOrchestrator(fastConfig())

	require.NoError(t, o.StartContinuousFeedback(func() *signal.Sample {
		return &signal.Sample{RSSI: -60, Quality: 0.5}
	}))
	require.NoError(t, o.Release())
	assert.True(t, audio.closed, "release must close the audio device")

	// Release is terminal.
	assert.ErrorIs(t, o.Release(), ErrDisposed)
}

func testOrchestratorDisposed(t *testing.T) {
	o, _, _ := newTestOrchestrator(fastConfig())
	require.NoError(t, o.Release())

	provider := func() *signal.Sample { return nil }
	assert.ErrorIs(t, o.SetAudioEnabled(true), ErrDisposed)
	assert.ErrorIs(t, o.SetHapticsEnabled(true), ErrDisposed)
	assert.ErrorIs(t, o.ProvideFeedback(signal.Sample{}), ErrDisposed)
	assert.ErrorIs(t, o.StartContinuousFeedback(provider), ErrDisposed)
	assert.ErrorIs(t, o.StartGeigerMode(func() int { return -60 }), ErrDisposed)
	assert.ErrorIs(t, o.Stop(), ErrDisposed)
	assert.ErrorIs(t, o.OnNetworkDiscovered(), ErrDisposed)
	assert.ErrorIs(t, o.OnConnectionChanged(), ErrDisposed)
	assert.ErrorIs(t, o.NotifySignalQuality(0.1), ErrDisposed)
}

func testOrchestratorEvents(t *testing.T) {
	o, _, haptics := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	// Back-to-back events both land; the cooldown does not apply to them.
	require.NoError(t, o.OnNetworkDiscovered())
	require.NoError(t, o.OnConnectionChanged())
	assert.Eventually(t, func() bool { return haptics.count() == 2 }, time.Second, 5*time.Millisecond)

	// Disabled haptics silence events without error.
	require.NoError(t, o.SetHapticsEnabled(false))
	require.NoError(t, o.OnNetworkDiscovered())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, haptics.count())
}

func testOrchestratorQualityNotification(t *testing.T) {
	o, _, haptics := newTestOrchestrator(fastConfig())
	defer func() { _ = o.Release() }()

	require.NoError(t, o.NotifySignalQuality(0.1))
	assert.Eventually(t, func() bool { return haptics.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "signal-weak", haptics.last().Name)

	// Acceptable quality produces no feedback.
	require.NoError(t, o.NotifySignalQuality(0.9))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, haptics.count())
}

func testOrchestratorPlaybackErrorHook(t *testing.T) {
	audio := &fakeAudio{writeErr: assert.AnError}
	o := New(fastConfig(), audio, &fakeHaptics{})
	defer func() { _ = o.Release() }()

	errs := make(chan error, 1)
	o.SetPlaybackErrorHook(func(err error) { errs <- err })

	require.NoError(t, o.ProvideFeedback(signal.Sample{RSSI: -50, Quality: 0.5}))
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, assert.AnError)
	case <-time.After(time.Second):
		t.Fatal("playback error hook never invoked")
	}
	assert.EqualValues(t, 1, o.GetMetrics().PlaybackErrors)
}

func testFeedbackInterval(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name    string
		quality float64
		want    time.Duration
	}{
		{"Perfect", 1.0, 100 * time.Millisecond},
		{"Dead", 0.0, 1000 * time.Millisecond},
		{"Good", 0.9, 190 * time.Millisecond},
		{"Mid", 0.5, 550 * time.Millisecond},
		{"ClampsHigh", 1.7, 100 * time.Millisecond},
		{"ClampsLow", -0.4, 1000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.FeedbackInterval(tt.quality))
		})
	}
}

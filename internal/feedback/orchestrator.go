package feedback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sigscout/sigscout/internal/haptic"
	"github.com/sigscout/sigscout/internal/logging"
	"github.com/sigscout/sigscout/internal/signal"
	"github.com/sigscout/sigscout/internal/tone"
)

var (
	// ErrDisposed is returned by every operation after Release.
	ErrDisposed = errors.New("feedback orchestrator disposed")
	// ErrNoProvider is returned when a continuous mode is started without a
	// sample source.
	ErrNoProvider = errors.New("sample provider is nil")
)

// SampleProvider supplies the next signal sample, or nil when no data is
// available this tick.
type SampleProvider func() *signal.Sample

// RSSIProvider supplies the next raw dBm reading for geiger mode.
type RSSIProvider func() int

// Loop mode labels used in logs and metrics.
const (
	modeOneShot    = "one-shot"
	modeContinuous = "continuous"
	modeGeiger     = "geiger"
)

// Orchestrator converts signal samples into audio and haptic feedback. It
// owns the per-channel enable flags, at most one continuous loop at a time,
// and the exclusively-held audio device (via the tone player). All methods
// are safe for concurrent use.
type Orchestrator struct {
	// Atomic fields first for 64-bit alignment on 32-bit targets.
	tonesPlayed     int64
	tonesSuppressed int64
	playbackErrors  int64
	hapticFires     int64
	loopIterations  int64

	audioEnabled  int32
	hapticEnabled int32
	disposed      int32

	cfg     Config
	player  *tone.Player
	haptics *haptic.Renderer
	logger  zerolog.Logger

	// rootCtx governs one-shot tones; cancelled only on Release.
	rootCtx    context.Context
	rootCancel context.CancelFunc

	// onPlaybackError, when set, observes device write failures that the
	// engine itself swallows.
	onPlaybackError func(error)

	// loopMu guards the single active continuous loop. Starting a new loop
	// cancels and waits out the previous one.
	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	sampleMu       sync.Mutex
	lastSample     signal.Sample
	haveSample     bool
	lastSampleTime time.Time
}

// New creates an orchestrator over the given output devices. Both feedback
// channels start enabled.
func New(cfg Config, audioDev tone.Device, hapticDev haptic.Device) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:        cfg,
		player:     tone.NewPlayer(audioDev),
		haptics:    haptic.NewRenderer(hapticDev, cfg.HapticCooldown),
		logger:     logging.GetDefaultLogger().With().Str("component", "feedback-orchestrator").Logger(),
		rootCtx:    ctx,
		rootCancel: cancel,
	}
	atomic.StoreInt32(&o.audioEnabled, 1)
	atomic.StoreInt32(&o.hapticEnabled, 1)
	return o
}

// SetPlaybackErrorHook installs the diagnostic callback for audio write
// failures. Call before starting any feedback.
func (o *Orchestrator) SetPlaybackErrorHook(fn func(error)) {
	o.onPlaybackError = fn
}

// SetAudioEnabled toggles the audio channel. Disabling halts any in-flight
// tone immediately and has no effect on haptics.
func (o *Orchestrator) SetAudioEnabled(enabled bool) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if enabled {
		atomic.StoreInt32(&o.audioEnabled, 1)
	} else {
		atomic.StoreInt32(&o.audioEnabled, 0)
		o.player.Halt()
	}
	o.logger.Debug().Bool("enabled", enabled).Msg("audio channel toggled")
	return nil
}

// SetHapticsEnabled toggles the haptic channel. Independent of audio.
func (o *Orchestrator) SetHapticsEnabled(enabled bool) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if enabled {
		atomic.StoreInt32(&o.hapticEnabled, 1)
	} else {
		atomic.StoreInt32(&o.hapticEnabled, 0)
	}
	o.logger.Debug().Bool("enabled", enabled).Msg("haptic channel toggled")
	return nil
}

// AudioEnabled reports the audio channel flag.
func (o *Orchestrator) AudioEnabled() bool {
	return atomic.LoadInt32(&o.audioEnabled) == 1
}

// HapticsEnabled reports the haptic channel flag.
func (o *Orchestrator) HapticsEnabled() bool {
	return atomic.LoadInt32(&o.hapticEnabled) == 1
}

// ProvideFeedback renders one sample: a short tone pitched from RSSI on the
// audio channel and an interference pattern on the haptic channel. The two
// dispatches are independent; neither waits for the other.
func (o *Orchestrator) ProvideFeedback(s signal.Sample) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	cs := s.Clamped()
	o.setLastSample(cs)

	if o.AudioEnabled() {
		go o.playTone(o.rootCtx, modeOneShot, tone.FrequencyFromRSSI(cs.RSSI), o.cfg.OneShotToneDuration)
	}
	if o.HapticsEnabled() {
		go o.fireInterference(cs.InterferenceScore)
	}
	return nil
}

// StartContinuousFeedback starts the sample-driven feedback loop, replacing
// any loop already active. Each iteration pulls a sample, plays a short tone,
// fires haptics when interference exceeds the threshold, then sleeps for a
// quality-dependent interval.
func (o *Orchestrator) StartContinuousFeedback(provider SampleProvider) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if provider == nil {
		return ErrNoProvider
	}
	o.replaceLoop(modeContinuous, func(ctx context.Context) {
		o.runContinuous(ctx, provider)
	})
	return nil
}

// StartGeigerMode starts the click-train mode: pitch and click rate both rise
// with signal strength. The mode is audio-only and is a no-op when the audio
// channel is disabled at start time.
func (o *Orchestrator) StartGeigerMode(provider RSSIProvider) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if provider == nil {
		return ErrNoProvider
	}
	if !o.AudioEnabled() {
		o.logger.Info().Msg("geiger mode requested with audio disabled, ignoring")
		return nil
	}
	o.replaceLoop(modeGeiger, func(ctx context.Context) {
		o.runGeiger(ctx, provider)
	})
	return nil
}

// Stop cancels any active continuous loop and halts the currently-playing
// tone. Idempotent.
func (o *Orchestrator) Stop() error {
	if o.isDisposed() {
		return ErrDisposed
	}
	o.stopLoop()
	o.player.Halt()
	return nil
}

// Release stops all activity and permanently gives up the audio device. The
// orchestrator is unusable afterward; every subsequent call fails with
// ErrDisposed.
func (o *Orchestrator) Release() error {
	if !atomic.CompareAndSwapInt32(&o.disposed, 0, 1) {
		return ErrDisposed
	}
	o.stopLoop()
	o.rootCancel()
	err := o.player.Close()
	o.logger.Info().Msg("feedback orchestrator released")
	return err
}

// OnNetworkDiscovered fires the network-discovered haptic pattern. Event
// patterns bypass the cooldown; only the channel flag and device capability
// gate them.
func (o *Orchestrator) OnNetworkDiscovered() error {
	return o.fireEvent(haptic.EventNetworkDiscovered)
}

// OnConnectionChanged fires the connection-changed haptic pattern, bypassing
// the cooldown like all discrete events.
func (o *Orchestrator) OnConnectionChanged() error {
	return o.fireEvent(haptic.EventConnectionChanged)
}

// NotifySignalQuality fires the quality-band haptic pattern for a raw
// quality reading (weak or poor signal). Shares the cooldown with
// interference-based fires.
func (o *Orchestrator) NotifySignalQuality(quality float64) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if !o.HapticsEnabled() {
		return nil
	}
	go func() {
		if o.haptics.FireForQuality(quality) {
			atomic.AddInt64(&o.hapticFires, 1)
		}
	}()
	return nil
}

// LastSample returns the most recent sample seen, for diagnostics.
func (o *Orchestrator) LastSample() (signal.Sample, bool) {
	o.sampleMu.Lock()
	defer o.sampleMu.Unlock()
	return o.lastSample, o.haveSample
}

// GetMetrics returns a snapshot of the engine counters.
func (o *Orchestrator) GetMetrics() Metrics {
	o.sampleMu.Lock()
	last := o.lastSampleTime
	o.sampleMu.Unlock()
	return Metrics{
		TonesPlayed:     atomic.LoadInt64(&o.tonesPlayed),
		TonesSuppressed: atomic.LoadInt64(&o.tonesSuppressed),
		PlaybackErrors:  atomic.LoadInt64(&o.playbackErrors),
		HapticFires:     atomic.LoadInt64(&o.hapticFires),
		LoopIterations:  atomic.LoadInt64(&o.loopIterations),
		LastSampleTime:  last,
	}
}

func (o *Orchestrator) isDisposed() bool {
	return atomic.LoadInt32(&o.disposed) == 1
}

func (o *Orchestrator) setLastSample(s signal.Sample) {
	o.sampleMu.Lock()
	o.lastSample = s
	o.haveSample = true
	o.lastSampleTime = time.Now()
	o.sampleMu.Unlock()
}

func (o *Orchestrator) fireEvent(e haptic.Event) error {
	if o.isDisposed() {
		return ErrDisposed
	}
	if !o.HapticsEnabled() {
		return nil
	}
	go func() {
		if o.haptics.FireEvent(e) {
			atomic.AddInt64(&o.hapticFires, 1)
		}
	}()
	return nil
}

func (o *Orchestrator) fireInterference(score float64) {
	if o.haptics.FireForInterference(score) {
		atomic.AddInt64(&o.hapticFires, 1)
	}
}

// playTone synthesizes and plays one tone, recording the outcome. Device
// write failures suppress that single tone; the surrounding loop keeps going.
func (o *Orchestrator) playTone(ctx context.Context, mode string, frequencyHz int, duration time.Duration) {
	played, err := o.player.Play(ctx, frequencyHz, duration)
	if err != nil {
		atomic.AddInt64(&o.playbackErrors, 1)
		metricPlaybackErrors.Inc()
		o.logger.Warn().Err(err).Str("mode", mode).Int("frequency_hz", frequencyHz).Msg("tone playback failed")
		if o.onPlaybackError != nil {
			o.onPlaybackError(err)
		}
		return
	}
	if !played {
		atomic.AddInt64(&o.tonesSuppressed, 1)
		metricTonesSuppressed.Inc()
		return
	}
	atomic.AddInt64(&o.tonesPlayed, 1)
	metricTonesPlayed.WithLabelValues(mode).Inc()
}

// replaceLoop installs a new continuous loop, cancelling the previous one and
// waiting until it has reached a safe stop before the new one starts.
func (o *Orchestrator) replaceLoop(mode string, run func(ctx context.Context)) {
	o.loopMu.Lock()
	defer o.loopMu.Unlock()
	o.stopLoopLocked()

	ctx, cancel := context.WithCancel(o.rootCtx)
	done := make(chan struct{})
	o.loopCancel = cancel
	o.loopDone = done
	o.logger.Info().Str("mode", mode).Msg("starting feedback loop")
	go func() {
		defer close(done)
		run(ctx)
	}()
}

func (o *Orchestrator) stopLoop() {
	o.loopMu.Lock()
	defer o.loopMu.Unlock()
	o.stopLoopLocked()
}

func (o *Orchestrator) stopLoopLocked() {
	if o.loopCancel == nil {
		return
	}
	o.loopCancel()
	o.player.Halt()
	<-o.loopDone
	o.loopCancel = nil
	o.loopDone = nil
}

func (o *Orchestrator) runContinuous(ctx context.Context, provider SampleProvider) {
	for {
		if ctx.Err() != nil {
			return
		}
		s := provider()
		if s == nil {
			if !sleepCtx(ctx, o.cfg.DefaultPollInterval) {
				return
			}
			continue
		}
		cs := s.Clamped()
		o.setLastSample(cs)
		atomic.AddInt64(&o.loopIterations, 1)
		metricLoopIterations.WithLabelValues(modeContinuous).Inc()

		// Tone and haptic dispatch are fire-and-forget relative to the
		// loop; only the sleep/continue path is sequential.
		if o.AudioEnabled() {
			go o.playTone(ctx, modeContinuous, tone.FrequencyFromRSSI(cs.RSSI), o.cfg.LoopToneDuration)
		}
		if o.HapticsEnabled() && cs.InterferenceScore > o.cfg.HapticThreshold {
			go o.fireInterference(cs.InterferenceScore)
		}

		if !sleepCtx(ctx, o.cfg.FeedbackInterval(cs.Quality)) {
			return
		}
	}
}

func (o *Orchestrator) runGeiger(ctx context.Context, provider RSSIProvider) {
	err := o.player.PlayStream(ctx, func() (int, bool) {
		if ctx.Err() != nil || !o.AudioEnabled() {
			return 0, false
		}
		atomic.AddInt64(&o.loopIterations, 1)
		metricLoopIterations.WithLabelValues(modeGeiger).Inc()
		return provider(), true
	})
	if err != nil {
		o.logger.Warn().Err(err).Msg("geiger stream ended with error")
	}
}

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

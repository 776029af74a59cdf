package main

import (
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sigscout/sigscout/internal/feedback"
	"github.com/sigscout/sigscout/internal/haptic"
	"github.com/sigscout/sigscout/internal/logging"
	sig "github.com/sigscout/sigscout/internal/signal"
	"github.com/sigscout/sigscout/internal/tone"
)

var (
	flagAudio    bool
	flagHaptics  bool
	flagGeiger   bool
	flagDuration time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sigscout-feedback",
		Short: "Sigscout feedback engine demo with a simulated signal sampler",
		Long: `Drives the sigscout feedback engine from a random-walk signal simulator,
rendering audio tones through the system output and haptic patterns through a
logging vibration device. Use --geiger for the click-train mode.`,
		RunE: run,
	}

	rootCmd.Flags().BoolVar(&flagAudio, "audio", true, "Enable the audio feedback channel")
	rootCmd.Flags().BoolVar(&flagHaptics, "haptics", true, "Enable the haptic feedback channel")
	rootCmd.Flags().BoolVar(&flagGeiger, "geiger", false, "Run geiger mode instead of the continuous loop")
	rootCmd.Flags().DurationVar(&flagDuration, "duration", 30*time.Second, "How long to run before exiting")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := logging.GetSubsystemLogger("demo")

	orch := feedback.New(feedback.DefaultConfig(), tone.NewDevice(nil), haptic.NewLogDevice())
	defer func() { _ = orch.Release() }()

	if err := orch.SetAudioEnabled(flagAudio); err != nil {
		return err
	}
	if err := orch.SetHapticsEnabled(flagHaptics); err != nil {
		return err
	}

	sim := newSimulator()
	var err error
	if flagGeiger {
		err = orch.StartGeigerMode(sim.nextRSSI)
	} else {
		err = orch.StartContinuousFeedback(sim.nextSample)
	}
	if err != nil {
		return err
	}

	logger.Info().
		Bool("audio", flagAudio).
		Bool("haptics", flagHaptics).
		Bool("geiger", flagGeiger).
		Dur("duration", flagDuration).
		Msg("feedback demo running, Ctrl+C to stop")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-time.After(flagDuration):
	}

	m := orch.GetMetrics()
	logger.Info().
		Int64("tones_played", m.TonesPlayed).
		Int64("haptic_fires", m.HapticFires).
		Int64("loop_iterations", m.LoopIterations).
		Msg("demo finished")
	return orch.Release()
}

// simulator produces a random-walk signal: RSSI drifts between the bounds,
// interference spikes occasionally, quality tracks RSSI with noise.
type simulator struct {
	rng          *rand.Rand
	rssi         int
	interference float64
}

func newSimulator() *simulator {
	return &simulator{
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
		rssi: -60,
	}
}

func (s *simulator) nextRSSI() int {
	s.rssi += s.rng.Intn(7) - 3
	s.rssi = sig.ClampInt(s.rssi, sig.MinRSSI, sig.MaxRSSI)
	return s.rssi
}

func (s *simulator) nextSample() *sig.Sample {
	rssi := s.nextRSSI()

	// Interference decays toward zero with occasional spikes.
	s.interference *= 0.9
	if s.rng.Float64() < 0.15 {
		s.interference = s.rng.Float64()
	}

	quality := float64(rssi-sig.MinRSSI) / float64(sig.MaxRSSI-sig.MinRSSI)
	quality = sig.ClampFloat(quality+(s.rng.Float64()-0.5)*0.1, 0, 1)

	return &sig.Sample{
		RSSI:              rssi,
		InterferenceScore: s.interference,
		Quality:           quality,
	}
}

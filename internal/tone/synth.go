package tone

import (
	"math"
	"time"

	"github.com/sigscout/sigscout/internal/signal"
)

// normalizeRSSI maps a dBm reading onto [0,1]: -90 dBm or weaker is 0,
// -30 dBm or stronger is 1, linear in between.
func normalizeRSSI(rssi int) float64 {
	shifted := signal.ClampFloat(float64(rssi-rssiFloor), 0, rssiSpan)
	return shifted / rssiSpan
}

// FrequencyFromRSSI maps signal strength to pitch. Stronger signal yields a
// higher frequency, bounded to [MinFrequency, MaxFrequency].
func FrequencyFromRSSI(rssi int) int {
	norm := normalizeRSSI(rssi)
	return MinFrequency + int(norm*float64(MaxFrequency-MinFrequency))
}

// IntervalFromRSSI maps signal strength to a click interval. Stronger signal
// yields a shorter interval, bounded to [MinInterval, MaxInterval]. Used by
// geiger mode.
func IntervalFromRSSI(rssi int) time.Duration {
	norm := normalizeRSSI(rssi)
	return MaxInterval - time.Duration(norm*float64(MaxInterval-MinInterval))
}

// GenerateBuffer synthesizes a mono 16-bit sine wave at the given frequency.
// Amplitude is shaped by an attack/release envelope: linear ramp-up over the
// first 10% of samples, flat at Volume until 80%, linear ramp-down over the
// last 20%. The sample count truncates (SampleRate * ms / 1000); a
// non-positive count yields a nil buffer.
func GenerateBuffer(frequencyHz int, duration time.Duration) []int16 {
	n := SampleRate * int(duration.Milliseconds()) / 1000
	if n <= 0 {
		return nil
	}

	attack := int(float64(n) * attackFraction)
	release := int(float64(n) * releaseFraction)

	buf := make([]int16, n)
	omega := 2 * math.Pi * float64(frequencyHz) / SampleRate
	for i := 0; i < n; i++ {
		env := 1.0
		switch {
		case i < attack:
			env = float64(i) / float64(attack)
		case i >= n-release:
			env = float64(n-i) / float64(release)
		}
		v := Volume * env * math.Sin(omega*float64(i))
		buf[i] = int16(v * FullScale)
	}
	return buf
}

// pcmBytes converts int16 samples to the little-endian byte stream the output
// device consumes.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

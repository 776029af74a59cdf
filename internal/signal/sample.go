package signal

// RSSI bounds observed on consumer WiFi hardware. Samples outside the range
// are clamped, never rejected.
const (
	MinRSSI = -90
	MaxRSSI = -30
)

// Sample is an immutable snapshot of one wireless-signal measurement,
// produced externally each tick.
type Sample struct {
	// RSSI is the received-signal-strength indicator in dBm.
	RSSI int
	// InterferenceScore is in [0,1]; higher means worse interference.
	InterferenceScore float64
	// Quality is the overall signal quality in [0,1]; higher is better.
	Quality float64
}

// Clamped returns a copy of the sample with every field forced into its
// documented range. The engine never trusts the producer's bounds.
func (s Sample) Clamped() Sample {
	return Sample{
		RSSI:              ClampInt(s.RSSI, MinRSSI, MaxRSSI),
		InterferenceScore: ClampFloat(s.InterferenceScore, 0, 1),
		Quality:           ClampFloat(s.Quality, 0, 1),
	}
}

// ClampInt bounds v to [lo, hi] inclusive.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat bounds v to [lo, hi] inclusive.
func ClampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

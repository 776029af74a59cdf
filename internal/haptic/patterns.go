package haptic

import "time"

// Severity classifies how strongly a measurement should be felt. Bands are
// evaluated high to low; the first match wins.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityModerate
	SeverityHigh
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityModerate:
		return "moderate"
	case SeverityHigh:
		return "high"
	case SeveritySevere:
		return "severe"
	default:
		return "none"
	}
}

// Event is a discrete application occurrence with its own fixed pattern.
// Event patterns bypass the renderer cooldown.
type Event int

const (
	EventNetworkDiscovered Event = iota
	EventConnectionChanged
)

func (e Event) String() string {
	switch e {
	case EventNetworkDiscovered:
		return "network-discovered"
	case EventConnectionChanged:
		return "connection-changed"
	default:
		return "unknown"
	}
}

// Pattern is an ordered sequence of vibration pulses: Offsets[i] is when the
// i-th pulse starts relative to dispatch, Amplitudes[i] its strength in
// [0,255]. Patterns never repeat in this engine.
type Pattern struct {
	Name       string
	Offsets    []time.Duration
	Amplitudes []int
	Repeat     bool
}

// tick is the short single pulse reused wherever a subtle nudge is enough.
var tick = Pattern{
	Name:       "tick",
	Offsets:    []time.Duration{0},
	Amplitudes: []int{80},
}

// interferencePatterns maps interference severity to its fixed pattern.
// Amplitude and pulse density grow with the band.
var interferencePatterns = map[Severity]Pattern{
	SeveritySevere: {
		Name:       "interference-severe",
		Offsets:    []time.Duration{0, 120 * time.Millisecond, 240 * time.Millisecond, 360 * time.Millisecond},
		Amplitudes: []int{255, 255, 255, 255},
	},
	SeverityHigh: {
		Name:       "interference-high",
		Offsets:    []time.Duration{0, 160 * time.Millisecond, 320 * time.Millisecond},
		Amplitudes: []int{200, 200, 200},
	},
	SeverityModerate: {
		Name:       "interference-moderate",
		Offsets:    []time.Duration{0, 200 * time.Millisecond},
		Amplitudes: []int{140, 140},
	},
	SeverityLow: tick,
}

// qualityPatterns is the secondary mapping for raw signal quality: a long
// heavy buzz when the signal is nearly gone, a double pulse when it is poor.
var qualityPatterns = map[Severity]Pattern{
	SeverityHigh: {
		Name:       "signal-weak",
		Offsets:    []time.Duration{0, 250 * time.Millisecond},
		Amplitudes: []int{255, 180},
	},
	SeverityModerate: {
		Name:       "signal-poor",
		Offsets:    []time.Duration{0, 180 * time.Millisecond},
		Amplitudes: []int{120, 120},
	},
}

var eventPatterns = map[Event]Pattern{
	EventNetworkDiscovered: {
		Name:       "network-discovered",
		Offsets:    []time.Duration{0, 80 * time.Millisecond},
		Amplitudes: []int{60, 120},
	},
	EventConnectionChanged: {
		Name:       "connection-changed",
		Offsets:    []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond},
		Amplitudes: []int{180, 0, 180},
	},
}

// SeverityForInterference buckets an interference score in [0,1]. Boundaries
// are inclusive on the high side: exactly 0.7 is severe.
func SeverityForInterference(score float64) Severity {
	switch {
	case score >= 0.7:
		return SeveritySevere
	case score >= 0.5:
		return SeverityHigh
	case score >= 0.3:
		return SeverityModerate
	case score >= 0.1:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// SeverityForQuality buckets overall signal quality in [0,1] for the
// quality-specific entry point. Lower quality means stronger feedback.
func SeverityForQuality(quality float64) Severity {
	switch {
	case quality <= 0.2:
		return SeverityHigh
	case quality <= 0.4:
		return SeverityModerate
	default:
		return SeverityNone
	}
}

// PatternForInterference returns the fixed pattern for an interference
// severity; ok is false for SeverityNone.
func PatternForInterference(s Severity) (Pattern, bool) {
	p, ok := interferencePatterns[s]
	return p, ok
}

// PatternForQuality returns the fixed pattern for a quality severity.
func PatternForQuality(s Severity) (Pattern, bool) {
	p, ok := qualityPatterns[s]
	return p, ok
}

// PatternForEvent returns the fixed pattern for a discrete event.
func PatternForEvent(e Event) (Pattern, bool) {
	p, ok := eventPatterns[e]
	return p, ok
}

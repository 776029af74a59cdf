package tone

import "time"

// PCM output format: mono 16-bit signed at CD sample rate.
const (
	SampleRate     = 44100
	Channels       = 1
	BytesPerSample = 2
	FullScale      = 32767
)

// Frequency mapping range. Stronger signal maps to higher pitch.
const (
	MinFrequency = 220 // Hz, A3
	MaxFrequency = 880 // Hz, A5
)

// Click interval mapping range for geiger mode. Stronger signal maps to a
// shorter interval (faster clicks).
const (
	MinInterval = 100 * time.Millisecond
	MaxInterval = 1000 * time.Millisecond
)

// Envelope shaping. Volume is the flat-section amplitude as a fraction of
// full scale; attack and release are fractions of the buffer length.
const (
	Volume          = 0.5
	attackFraction  = 0.10
	releaseFraction = 0.20
)

// rssiFloor/rssiSpan normalize a dBm reading into [0,1]:
// clamp(rssi+90, 0, 60) / 60.
const (
	rssiFloor = -90
	rssiSpan  = 60
)

// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults of
// the radar.
const (
	// Acquisition defaults
	DefaultInitialMode          = "edge"     // Comparator running at boot
	DefaultInitialUnits         = "metric"   // km/h
	DefaultPollInterval         = 500 * time.Millisecond
	DefaultTransmittedFrequency = 10.525e9 // X band carrier (Hz)

	// Spectral estimator defaults
	DefaultSampleRate = 16384 // 4 Hz per bin with 4096 point blocks
	DefaultBias       = 2048  // Mid-rail code of the 12-bit converter

	// Edge-counting estimator defaults
	DefaultTimerRate = 16000 // Reference timer tick rate (Hz)
	DefaultThreshold = 2048  // Comparator switching level (ADC codes)

	// Simulated source defaults
	DefaultSource        = "sim"
	DefaultToneFrequency = 1000.0 // ~51 km/h at the default carrier
	DefaultToneAmplitude = 1000.0 // ADC codes
	DefaultToneNoise     = 20.0   // ADC codes, standard deviation
	DefaultAudioDevice   = MinDeviceID

	// Display defaults
	DefaultDisplay  = "console"
	DefaultBaudRate = 9600

	// Transport defaults
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents the system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxADCCode    = 4095   // Largest 12-bit sample
)

// Accepted values of the enumerated settings.
var (
	SourceKinds  = []string{"sim", "wav", "audio"}
	DisplayKinds = []string{"console", "serial", "tui", "none"}
)

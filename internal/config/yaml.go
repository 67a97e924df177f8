// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"doppler/internal/controller"
	applog "doppler/internal/log"
	"doppler/internal/speed"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug       bool              `yaml:"debug"`       // Enable debug mode (verbose logging).
	LogLevel    string            `yaml:"log_level"`   // Logging level (e.g., "debug", "info", "warn", "error").
	Command     string            `yaml:"-"`           // A one-off command to execute instead of running the radar (e.g., "list").
	Acquisition AcquisitionConfig `yaml:"acquisition"` // Mode controller settings.
	Spectral    SpectralConfig    `yaml:"spectral"`    // Spectral estimator settings.
	Edge        EdgeConfig        `yaml:"edge"`        // Edge-counting estimator settings.
	Source      SourceConfig      `yaml:"source"`      // Signal source behind the capture hardware.
	Display     DisplayConfig     `yaml:"display"`     // Character display settings.
	Transport   TransportConfig   `yaml:"transport"`   // Measurement publishing settings.
	Recording   RecordingConfig   `yaml:"recording"`   // Capture recording settings.
}

// AcquisitionConfig holds the mode controller settings.
type AcquisitionConfig struct {
	InitialMode          string        `yaml:"initial_mode"`          // "edge" or "spectral".
	InitialUnits         string        `yaml:"initial_units"`         // "metric" or "imperial".
	PollInterval         time.Duration `yaml:"poll_interval"`         // Foreground loop period.
	TransmittedFrequency float64       `yaml:"transmitted_frequency"` // Radar carrier in Hz.
}

// SpectralConfig holds the spectral estimator settings.
type SpectralConfig struct {
	SampleRate float64 `yaml:"sample_rate"` // ADC sample rate in Hz, fixes the bin width.
	Bias       float64 `yaml:"bias"`        // Offset removed from every sample before the transform.
}

// EdgeConfig holds the edge-counting estimator settings.
type EdgeConfig struct {
	TimerRate float64 `yaml:"timer_rate"` // Reference timer tick rate in Hz.
	Threshold float64 `yaml:"threshold"`  // Comparator switching level in ADC codes.
}

// SourceConfig selects the hardware behind the board.
type SourceConfig struct {
	Kind          string  `yaml:"kind"`           // "sim", "wav" or "audio".
	ToneFrequency float64 `yaml:"tone_frequency"` // Simulated Doppler beat in Hz.
	ToneAmplitude float64 `yaml:"tone_amplitude"` // Simulated amplitude in ADC codes.
	ToneNoise     float64 `yaml:"tone_noise"`     // Simulated noise deviation in ADC codes.
	WAVFile       string  `yaml:"wav_file"`       // Recording replayed by the "wav" source.
	AudioDevice   int     `yaml:"audio_device"`   // PortAudio device index for the "audio" source (-1 for default).
	Squelch       int     `yaml:"squelch"`        // Audio blocks with a peak at or below this (ADC codes) read as silence, 0 disables.
}

// DisplayConfig selects the display collaborator.
type DisplayConfig struct {
	Kind       string `yaml:"kind"`        // "console", "serial", "tui" or "none".
	SerialPort string `yaml:"serial_port"` // Serial LCD backpack port (e.g., "/dev/ttyUSB0").
	BaudRate   int    `yaml:"baud_rate"`   // Serial LCD baud rate.
}

// TransportConfig holds settings related to publishing measurements.
type TransportConfig struct {
	LogFrames        bool   `yaml:"log_frames"`         // Log every frame at debug level.
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Broadcast frames to WebSocket clients.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address for the WebSocket server.
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send binary frames over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
}

// RecordingConfig holds settings related to recording captured blocks.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record every spectral block to a WAV file.
	OutputFile string `yaml:"output_file"` // Output path, generated when empty.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Acquisition: AcquisitionConfig{
			InitialMode:          DefaultInitialMode,
			InitialUnits:         DefaultInitialUnits,
			PollInterval:         DefaultPollInterval,
			TransmittedFrequency: DefaultTransmittedFrequency,
		},
		Spectral: SpectralConfig{
			SampleRate: DefaultSampleRate,
			Bias:       DefaultBias,
		},
		Edge: EdgeConfig{
			TimerRate: DefaultTimerRate,
			Threshold: DefaultThreshold,
		},
		Source: SourceConfig{
			Kind:          DefaultSource,
			ToneFrequency: DefaultToneFrequency,
			ToneAmplitude: DefaultToneAmplitude,
			ToneNoise:     DefaultToneNoise,
			AudioDevice:   DefaultAudioDevice,
		},
		Display: DisplayConfig{
			Kind:     DefaultDisplay,
			BaudRate: DefaultBaudRate,
		},
		Transport: TransportConfig{
			LogFrames:        true,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("doppler.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. After loading defaults or from file, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range []string{"doppler.yaml", "config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		add("log_level '%s' is not a known level", c.LogLevel)
	}

	// Acquisition Validation
	if _, err := controller.ParseMode(c.Acquisition.InitialMode); err != nil {
		errs = append(errs, fmt.Errorf("acquisition.initial_mode: %w", err))
	}
	if _, err := speed.ParseUnit(c.Acquisition.InitialUnits); err != nil {
		errs = append(errs, fmt.Errorf("acquisition.initial_units: %w", err))
	}
	if c.Acquisition.PollInterval <= 0 {
		add("acquisition.poll_interval must be positive")
	}
	if c.Acquisition.TransmittedFrequency <= 0 {
		add("acquisition.transmitted_frequency must be positive")
	}

	// Estimator Validation
	if c.Spectral.SampleRate < MinSampleRate || c.Spectral.SampleRate > MaxSampleRate {
		add("spectral.sample_rate %.0f outside [%d, %d]", c.Spectral.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Spectral.Bias < 0 || c.Spectral.Bias > MaxADCCode {
		add("spectral.bias %.0f outside the 12-bit range", c.Spectral.Bias)
	}
	if c.Edge.TimerRate <= 0 {
		add("edge.timer_rate must be positive")
	}
	if c.Edge.Threshold < 0 || c.Edge.Threshold > MaxADCCode {
		add("edge.threshold %.0f outside the 12-bit range", c.Edge.Threshold)
	}

	// Source Validation
	switch c.Source.Kind {
	case "sim":
		if c.Source.ToneFrequency < 0 || c.Source.ToneFrequency >= c.Spectral.SampleRate/2 {
			add("source.tone_frequency %.1f must be below Nyquist (%.1f)", c.Source.ToneFrequency, c.Spectral.SampleRate/2)
		}
		if c.Source.ToneAmplitude < 0 || c.Source.ToneNoise < 0 {
			add("source.tone_amplitude and source.tone_noise must not be negative")
		}
	case "wav":
		if c.Source.WAVFile == "" {
			add("source.wav_file must be set for the wav source")
		}
	case "audio":
		if c.Source.AudioDevice < MinDeviceID {
			add("source.audio_device %d is invalid", c.Source.AudioDevice)
		}
		if c.Source.Squelch < 0 || c.Source.Squelch > MaxADCCode {
			add("source.squelch %d outside the 12-bit range", c.Source.Squelch)
		}
	default:
		add("source.kind '%s' must be one of %s", c.Source.Kind, strings.Join(SourceKinds, ", "))
	}

	// Display Validation
	if !slices.Contains(DisplayKinds, c.Display.Kind) {
		add("display.kind '%s' must be one of %s", c.Display.Kind, strings.Join(DisplayKinds, ", "))
	}
	if c.Display.Kind == "serial" {
		if c.Display.SerialPort == "" {
			add("display.serial_port must be set for the serial display")
		}
		if c.Display.BaudRate <= 0 {
			add("display.baud_rate must be positive")
		}
	}

	// Transport Validation
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		add("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		add("transport.websocket_address must be set when the WebSocket server is enabled")
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies DOPPLER_* environment variables on top of the
// loaded values. Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// DOPPLER_{...}
	// These are general overrides.

	if val, ok := os.LookupEnv("DOPPLER_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("DOPPLER_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Debugf("configuration: Overriding log_level from env: %s", val)
	}
	if val, ok := os.LookupEnv("DOPPLER_SOURCE"); ok {
		cfg.Source.Kind = val
		applog.Debugf("configuration: Overriding source.kind from env: %s", val)
	}
	if val, ok := os.LookupEnv("DOPPLER_DISPLAY"); ok {
		cfg.Display.Kind = val
		applog.Debugf("configuration: Overriding display.kind from env: %s", val)
	}
	if val, ok := os.LookupEnv("DOPPLER_POLL_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Acquisition.PollInterval = dur
			applog.Debugf("configuration: Overriding acquisition.poll_interval from env: %s", dur)
		}
	}

	// DOPPLER_UDP_{...}, DOPPLER_WS_{...}
	// These are specific to the transport layer.

	if val, ok := os.LookupEnv("DOPPLER_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("DOPPLER_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	if val, ok := os.LookupEnv("DOPPLER_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
			applog.Debugf("configuration: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("DOPPLER_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
		applog.Debugf("configuration: Overriding transport.websocket_address from env: %s", val)
	}
}

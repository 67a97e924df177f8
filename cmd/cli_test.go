package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"DOPPLER_DEBUG", "DOPPLER_LOG_LEVEL", "DOPPLER_SOURCE", "DOPPLER_DISPLAY",
		"DOPPLER_POLL_INTERVAL", "DOPPLER_UDP_ENABLED", "DOPPLER_UDP_TARGET_ADDRESS",
		"DOPPLER_WS_ENABLED", "DOPPLER_WS_ADDRESS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParseArgsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := parseArgs(nil, &bytes.Buffer{})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Command)
	assert.Equal(t, "sim", cfg.Source.Kind)
	assert.Equal(t, "edge", cfg.Acquisition.InitialMode)
	assert.Equal(t, "metric", cfg.Acquisition.InitialUnits)
	assert.False(t, cfg.Recording.Enabled)
}

func TestParseArgsFlags(t *testing.T) {
	isolate(t)

	cfg, err := parseArgs([]string{
		"--mode", "spectral",
		"--units", "imperial",
		"--display", "none",
		"--udp", "127.0.0.1:9999",
		"--websocket", ":9000",
		"--output", "run.wav",
		"-v",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "spectral", cfg.Acquisition.InitialMode)
	assert.Equal(t, "imperial", cfg.Acquisition.InitialUnits)
	assert.Equal(t, "none", cfg.Display.Kind)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":9000", cfg.Transport.WebSocketAddress)
	assert.True(t, cfg.Recording.Enabled)
	assert.Equal(t, "run.wav", cfg.Recording.OutputFile)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseArgsImpliedSource(t *testing.T) {
	isolate(t)

	cfg, err := parseArgs([]string{"--wav", "capture.wav"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "wav", cfg.Source.Kind)
	assert.Equal(t, "capture.wav", cfg.Source.WAVFile)

	cfg, err = parseArgs([]string{"--device", "3"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "audio", cfg.Source.Kind)
	assert.Equal(t, 3, cfg.Source.AudioDevice)
}

func TestParseArgsConfigFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "radar.yaml")
	yaml := "acquisition:\n  initial_mode: spectral\ndisplay:\n  kind: none\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := parseArgs([]string{"-c", path, "--display", "console"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "spectral", cfg.Acquisition.InitialMode)
	assert.Equal(t, "console", cfg.Display.Kind, "flags win over the file")
}

func TestParseArgsInvalid(t *testing.T) {
	isolate(t)

	_, err := parseArgs([]string{"--mode", "doppler"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = parseArgs([]string{"--display", "serial"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "serial_port")
}

func TestParseArgsList(t *testing.T) {
	isolate(t)

	cfg, err := parseArgs([]string{"list"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "list", cfg.Command)

	cfg, err = parseArgs([]string{"list", "--pick"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "pick", cfg.Command)
}

func TestParseArgsHelp(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	cfg, err := parseArgs([]string{"--help"}, &out)
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "--mode")
}

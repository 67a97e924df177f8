// SPDX-License-Identifier: MIT
package radar

import (
	"bytes"
	"net"
	"path/filepath"
	"testing"

	"doppler/internal/config"
	"doppler/internal/lcd"
	"doppler/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBoardSim(t *testing.T) {
	cfg := config.Default()

	board, err := OpenBoard(cfg, false)
	require.NoError(t, err)
	defer board.Close()

	assert.Equal(t, cfg.Spectral.SampleRate, board.SampleRate)
	assert.Equal(t, cfg.Edge.TimerRate, board.Timer.Rate())
	assert.NotNil(t, board.ADC)
	assert.NotNil(t, board.Buffer)
}

func TestOpenBoardMissingWAV(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "wav"
	cfg.Source.WAVFile = filepath.Join(t.TempDir(), "missing.wav")

	_, err := OpenBoard(cfg, false)
	assert.Error(t, err)
}

func TestOpenBoardUnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "scope"

	_, err := OpenBoard(cfg, false)
	assert.ErrorContains(t, err, "scope")
}

func TestOpenDisplay(t *testing.T) {
	cfg := config.Default()
	var out bytes.Buffer

	cfg.Display.Kind = "console"
	d, closeFn, err := OpenDisplay(cfg, &out)
	require.NoError(t, err)
	assert.IsType(t, &lcd.Console{}, d)
	assert.NoError(t, closeFn())

	for _, kind := range []string{"tui", "none"} {
		cfg.Display.Kind = kind
		d, closeFn, err = OpenDisplay(cfg, &out)
		require.NoError(t, err, kind)
		assert.IsType(t, &lcd.Screen{}, d, kind)
		assert.NoError(t, closeFn())
	}

	cfg.Display.Kind = "oled"
	_, _, err = OpenDisplay(cfg, &out)
	assert.Error(t, err)
}

func TestOpenTransportDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.LogFrames = false
	cfg.Transport.WebSocketEnabled = false
	cfg.Transport.UDPEnabled = false

	tr, err := OpenTransport(cfg)
	require.NoError(t, err)
	assert.Empty(t, tr)
	assert.NoError(t, tr.Send(transport.NewFrame("edge", "metric", 1000, 51.3)))
	assert.NoError(t, tr.Close())
}

func TestOpenTransportLoggingAndUDP(t *testing.T) {
	listener, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	cfg := config.Default()
	cfg.Transport.LogFrames = true
	cfg.Transport.WebSocketEnabled = false
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = listener.LocalAddr().String()

	tr, err := OpenTransport(cfg)
	require.NoError(t, err)
	defer tr.Close()

	multi, ok := tr.(transport.Multi)
	require.True(t, ok)
	assert.Len(t, multi, 2)
	assert.NoError(t, tr.Send(transport.NewFrame("edge", "metric", 1000, 51.3)))
}

func TestOpenTransportBadUDPAddress(t *testing.T) {
	cfg := config.Default()
	cfg.Transport.WebSocketEnabled = false
	cfg.Transport.UDPEnabled = true
	cfg.Transport.UDPTargetAddress = "not an address"

	_, err := OpenTransport(cfg)
	assert.Error(t, err)
}

// SPDX-License-Identifier: MIT
package radar

import (
	"fmt"
	"io"

	"doppler/internal/audio"
	"doppler/internal/config"
	"doppler/internal/hal"
	"doppler/internal/lcd"
	applog "doppler/internal/log"
	"doppler/internal/sim"
	"doppler/internal/transport"
	"doppler/internal/transport/udp"
)

// OpenBoard builds the board selected by cfg.Source. The audio source needs
// PortAudio to be initialized.
func OpenBoard(cfg *config.Config, realtime bool) (*hal.Board, error) {
	switch cfg.Source.Kind {
	case "sim", "wav":
		wave, err := openWaveform(cfg)
		if err != nil {
			return nil, err
		}
		board := sim.NewBoard(wave, sim.Options{
			SampleRate: cfg.Spectral.SampleRate,
			TimerRate:  cfg.Edge.TimerRate,
			Threshold:  cfg.Edge.Threshold,
			Realtime:   realtime,
		})
		return &board.Board, nil

	case "audio":
		return audio.NewBoard(audio.BoardOptions{
			Capture: audio.CaptureOptions{
				DeviceID:   cfg.Source.AudioDevice,
				SampleRate: cfg.Spectral.SampleRate,
				Channels:   1,
				Squelch:    int32(cfg.Source.Squelch),
			},
			TimerRate: cfg.Edge.TimerRate,
			Threshold: cfg.Edge.Threshold,
		})

	default:
		return nil, fmt.Errorf("unknown source '%s'", cfg.Source.Kind)
	}
}

func openWaveform(cfg *config.Config) (sim.Waveform, error) {
	if cfg.Source.Kind == "wav" {
		replay, err := sim.LoadWAV(cfg.Source.WAVFile)
		if err != nil {
			return nil, err
		}
		applog.Infof("Radar: Replaying %s (%.1f s loop)", cfg.Source.WAVFile, replay.Duration())
		return replay, nil
	}

	applog.Infof("Radar: Simulating a %.1f Hz Doppler return", cfg.Source.ToneFrequency)
	return sim.Tone{
		Frequency: cfg.Source.ToneFrequency,
		Amplitude: cfg.Source.ToneAmplitude,
		Offset:    cfg.Spectral.Bias,
		Noise:     cfg.Source.ToneNoise,
	}, nil
}

// OpenDisplay returns the display selected by cfg.Display and a function
// releasing it. The tui display is a Screen the panel renders.
func OpenDisplay(cfg *config.Config, console io.Writer) (lcd.Display, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Display.Kind {
	case "console":
		return lcd.NewConsole(console), noop, nil
	case "serial":
		s, err := lcd.OpenSerial(cfg.Display.SerialPort, cfg.Display.BaudRate)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "tui", "none":
		return lcd.NewScreen(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown display '%s'", cfg.Display.Kind)
	}
}

// OpenTransport builds the fan-out of every enabled transport. Transports
// already opened are closed again when a later one fails.
func OpenTransport(cfg *config.Config) (transport.Transport, error) {
	var multi transport.Multi
	if cfg.Transport.LogFrames {
		multi = append(multi, transport.NewLoggingTransport())
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			ws.Close()
			multi.Close()
			return nil, err
		}
		multi = append(multi, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			multi.Close()
			return nil, err
		}
		pub, err := udp.NewPublisher(sender)
		if err != nil {
			sender.Close()
			multi.Close()
			return nil, err
		}
		multi = append(multi, pub)
	}

	return multi, nil
}

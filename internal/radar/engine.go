// SPDX-License-Identifier: MIT
/*
Package radar wires the estimators, their interrupt handlers and the mode
controller to a board, and runs the foreground polling loop.

Each cycle reads the keypad, applies the requested transition, measures,
writes the two display rows and publishes a frame. Interrupt handlers only
touch the estimators, never the display or the transport.
*/
package radar

import (
	"context"
	"fmt"
	"time"

	"doppler/internal/comparator"
	"doppler/internal/config"
	"doppler/internal/controller"
	"doppler/internal/critical"
	"doppler/internal/fft"
	"doppler/internal/hal"
	"doppler/internal/lcd"
	applog "doppler/internal/log"
	"doppler/internal/speed"
	"doppler/internal/transport"
)

// Engine owns the measurement system built on one board.
type Engine struct {
	board     *hal.Board
	spectral  *critical.Cell[fft.Estimator]
	edge      *critical.Cell[comparator.Estimator]
	ctrl      *controller.Controller
	display   lcd.Display
	buttons   lcd.ButtonReader
	transport transport.Transport

	pollInterval time.Duration
	sequence     uint32
}

// NewEngine constructs both estimators from the board, installs their
// interrupt handlers and starts the initial mode.
func NewEngine(cfg *config.Config, board *hal.Board, display lcd.Display, buttons lcd.ButtonReader, tr transport.Transport) (*Engine, error) {
	if board == nil || display == nil || buttons == nil || tr == nil {
		return nil, fmt.Errorf("radar: board, display, buttons and transport are required")
	}

	mode, err := controller.ParseMode(cfg.Acquisition.InitialMode)
	if err != nil {
		return nil, err
	}
	unit, err := speed.ParseUnit(cfg.Acquisition.InitialUnits)
	if err != nil {
		return nil, err
	}

	resolution := board.SampleRate / hal.TransformSize
	spectral, err := fft.NewEstimator(board.ADC, board.Buffer, board.DMA, resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to create spectral estimator: %w", err)
	}
	spectral.SetBias(cfg.Spectral.Bias)

	timerRate := board.Timer.Rate()
	if timerRate != cfg.Edge.TimerRate {
		applog.Warnf("Radar: Timer runs at %.0f Hz, configured %.0f Hz", timerRate, cfg.Edge.TimerRate)
	}

	e := &Engine{
		board:        board,
		spectral:     critical.NewCell(spectral),
		edge:         critical.NewCell(comparator.NewEstimator(board.Comparator, board.Timer, timerRate)),
		display:      display,
		buttons:      buttons,
		transport:    tr,
		pollInterval: cfg.Acquisition.PollInterval,
	}
	if e.pollInterval <= 0 {
		e.pollInterval = config.DefaultPollInterval
	}

	e.ctrl, err = controller.New(e.spectral, e.edge, controller.Options{
		InitialMode:          mode,
		InitialUnit:          unit,
		TransmittedFrequency: cfg.Acquisition.TransmittedFrequency,
	})
	if err != nil {
		return nil, err
	}

	board.Completion.OnTransferComplete(e.onTransferComplete)
	board.Timer.OnTick(e.onTick)

	applog.Infof("Radar: %.2f Hz per bin, %.0f Hz reference timer, polling every %v",
		resolution, timerRate, e.pollInterval)
	e.ctrl.Start()
	return e, nil
}

// onTransferComplete is the capture-complete interrupt handler.
func (e *Engine) onTransferComplete() {
	e.spectral.With(func(s *fft.Estimator) {
		s.HandleCallback()
	})
}

// onTick is the reference timer interrupt handler.
func (e *Engine) onTick() {
	e.edge.With(func(c *comparator.Estimator) {
		c.HandleCallback()
		c.ResetTimer()
	})
}

// Controller returns the mode controller.
func (e *Engine) Controller() *controller.Controller {
	return e.ctrl
}

// SetBlockObserver registers fn to see every analysed spectral block.
func (e *Engine) SetBlockObserver(fn func(*hal.SampleBuffer)) {
	e.spectral.With(func(s *fft.Estimator) {
		s.SetObserver(fn)
	})
}

// Step runs one polling cycle and returns its measurement.
func (e *Engine) Step() controller.Measurement {
	e.pollButtons()

	m := e.ctrl.Measure()

	if err := lcd.WriteRows(e.display, frequencyRow(m), lcd.FormatSpeed(m.Speed, m.Unit.Suffix())); err != nil {
		applog.Warnf("Radar: Display update failed: %v", err)
	}

	e.sequence++
	frame := transport.NewFrame(m.Mode.String(), m.Unit.String(), m.Frequency, m.Speed)
	frame.Sequence = e.sequence
	frame.SpeedBCD, frame.BCDValid = m.BCD, m.BCDValid
	if err := e.transport.Send(frame); err != nil {
		applog.Warnf("Radar: Failed to publish frame %d: %v", frame.Sequence, err)
	}
	return m
}

// pollButtons applies the latest keypad reading. A bad reading leaves the
// state unchanged for this cycle.
func (e *Engine) pollButtons() {
	reading, err := e.buttons.Read()
	if err != nil {
		applog.Warnf("Radar: Button read failed: %v", err)
		return
	}
	button, err := lcd.ParseButton(reading)
	if err != nil {
		applog.Warnf("Radar: Ignoring button reading: %v", err)
		return
	}
	if e.ctrl.Apply(button) {
		applog.Debugf("Radar: %s pressed, now %s / %s", button, e.ctrl.Mode(), e.ctrl.Unit())
	}
}

// frequencyRow tags the frequency row with the active mode in the last
// column.
func frequencyRow(m controller.Measurement) string {
	tag := "E"
	if m.Mode == controller.Spectral {
		tag = "S"
	}
	return lcd.FormatFrequency(m.Frequency)[:lcd.RowWidth-1] + tag
}

// Run polls until ctx is cancelled, then stops both estimators.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	applog.Infof("Radar: Running")
	for {
		select {
		case <-ctx.Done():
			e.ctrl.Stop()
			applog.Infof("Radar: Stopped")
			return nil
		case <-ticker.C:
			e.Step()
		}
	}
}

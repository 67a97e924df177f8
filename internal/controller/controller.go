// SPDX-License-Identifier: MIT
/*
Package controller implements the acquisition mode controller. It owns both
estimators, keeps exactly one of them running, and turns the active
estimator's output into a measurement with speed and BCD readout.

Every estimator access goes through its critical.Cell and the cell is
released before the next estimator is touched, so an interrupt handler is
never locked out for longer than one access.
*/
package controller

import (
	"fmt"
	"math"
	"strings"

	"doppler/internal/comparator"
	"doppler/internal/critical"
	"doppler/internal/fft"
	"doppler/internal/lcd"
	applog "doppler/internal/log"
	"doppler/internal/speed"
	"doppler/pkg/bitint"
)

// Mode selects which estimator drives measurement.
type Mode int

const (
	EdgeCounting Mode = iota
	Spectral
)

func (m Mode) String() string {
	switch m {
	case EdgeCounting:
		return "edge"
	case Spectral:
		return "spectral"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name (case-insensitive) to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "edge", "edge-counting", "comparator":
		return EdgeCounting, nil
	case "spectral", "fft":
		return Spectral, nil
	default:
		return EdgeCounting, fmt.Errorf("unknown acquisition mode: '%s'", name)
	}
}

// Measurement is the output of one polling cycle.
type Measurement struct {
	Mode      Mode
	Unit      speed.Unit
	Frequency float64 // Hz, NaN when the estimator has nothing to report.
	Speed     float64 // In Unit, NaN with Frequency.

	// BCD is the two-digit packed readout of the rounded speed, valid only
	// when the speed rounds into 0..99.
	BCD      uint8
	BCDValid bool
}

// Options configures a Controller.
type Options struct {
	InitialMode          Mode
	InitialUnit          speed.Unit
	TransmittedFrequency float64 // Carrier (Hz).
}

// Controller switches between the estimators and produces measurements.
// Its own state is only touched from the foreground loop.
type Controller struct {
	spectral *critical.Cell[fft.Estimator]
	edge     *critical.Cell[comparator.Estimator]

	mode        Mode
	unit        speed.Unit
	transmitted float64
	running     bool
}

// New creates a controller over both estimator cells. Nothing runs until
// Start is called.
func New(spectral *critical.Cell[fft.Estimator], edge *critical.Cell[comparator.Estimator], opts Options) (*Controller, error) {
	if spectral == nil || edge == nil {
		return nil, fmt.Errorf("controller: both estimators are required")
	}
	if opts.TransmittedFrequency <= 0 {
		opts.TransmittedFrequency = speed.DefaultTransmittedFrequency
	}
	return &Controller{
		spectral:    spectral,
		edge:        edge,
		mode:        opts.InitialMode,
		unit:        opts.InitialUnit,
		transmitted: opts.TransmittedFrequency,
	}, nil
}

// Mode returns the current acquisition mode.
func (c *Controller) Mode() Mode { return c.mode }

// Unit returns the current speed unit.
func (c *Controller) Unit() speed.Unit { return c.unit }

// Start runs the estimator of the initial mode. It is a no-op once started.
func (c *Controller) Start() {
	if c.running {
		return
	}
	c.running = true
	applog.Infof("Controller: Starting in %s mode, %s units", c.mode, c.unit)
	c.startActive()
}

// Stop halts both estimators.
func (c *Controller) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.spectral.With(func(e *fft.Estimator) { e.Stop() })
	c.edge.With(func(e *comparator.Estimator) { e.Stop() })
	applog.Infof("Controller: Stopped")
}

func (c *Controller) startActive() {
	switch c.mode {
	case Spectral:
		c.spectral.With(func(e *fft.Estimator) { e.Start() })
		c.edge.With(func(e *comparator.Estimator) { e.Stop() })
	default:
		c.spectral.With(func(e *fft.Estimator) { e.Stop() })
		c.edge.With(func(e *comparator.Estimator) { e.Start() })
	}
}

// Apply performs the transition requested by button and reports whether
// the state changed. Repeating a request is a no-op.
func (c *Controller) Apply(button lcd.Button) bool {
	switch button {
	case lcd.Up:
		return c.SetMode(EdgeCounting)
	case lcd.Down:
		return c.SetMode(Spectral)
	case lcd.Left:
		return c.SetUnit(speed.Metric)
	case lcd.Right:
		return c.SetUnit(speed.Imperial)
	default:
		return false
	}
}

// SetMode switches acquisition mode, moving the hardware between the
// estimators.
func (c *Controller) SetMode(m Mode) bool {
	if m == c.mode {
		return false
	}
	c.mode = m
	if c.running {
		c.startActive()
	}
	applog.Infof("Controller: Switched to %s mode", m)
	return true
}

// SetUnit changes the speed unit. Acquisition is not affected.
func (c *Controller) SetUnit(u speed.Unit) bool {
	if u == c.unit {
		return false
	}
	c.unit = u
	applog.Infof("Controller: Switched to %s units", u)
	return true
}

// Measure reads the active estimator and converts its frequency. The
// spectral estimator restarts its capture so acquisition is continuous.
func (c *Controller) Measure() Measurement {
	var freq float64
	switch c.mode {
	case Spectral:
		freq = critical.Free(c.spectral, func(e *fft.Estimator) float64 {
			return e.CalculateFrequency(true)
		})
	default:
		freq = critical.Free(c.edge, func(e *comparator.Estimator) float64 {
			return e.CalculateFrequency()
		})
	}

	m := Measurement{
		Mode:      c.mode,
		Unit:      c.unit,
		Frequency: freq,
		Speed:     c.unit.Convert(freq, c.transmitted),
	}
	m.BCD, m.BCDValid = readout(m.Speed)
	return m
}

// readout packs the rounded speed for a two-digit display.
func readout(v float64) (uint8, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	r := math.Round(v)
	if r < 0 || r > bitint.MaxBCD {
		return 0, false
	}
	bcd, err := bitint.BinToBCD(uint8(r))
	if err != nil {
		return 0, false
	}
	return bcd, true
}

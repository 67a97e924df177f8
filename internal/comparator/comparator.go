// SPDX-License-Identifier: MIT
//
// Package comparator implements the edge-counting frequency estimator. A
// binary comparator output is sampled on every reference timer tick and
// level changes are counted; the frequency follows from transitions per
// tick. All methods need exclusive access, HandleCallback and ResetTimer run
// in interrupt context.
package comparator

import (
	"math"

	"doppler/internal/hal"
)

// OverflowGuard bounds the tick counter to the 16-bit timer range. Once the
// tick count exceeds it both counters restart from zero.
const OverflowGuard = 65535

// Estimator counts comparator transitions against a reference timer.
type Estimator struct {
	comp  hal.Comparator
	timer hal.Timer

	timerFrequency float64 // Tick rate (Hz).
	level          bool    // Last observed comparator level.
	transitions    uint64
	ticks          uint64
}

// NewEstimator takes ownership of the comparator and the timer ticking at
// timerFrequency Hz.
func NewEstimator(comp hal.Comparator, timer hal.Timer, timerFrequency float64) *Estimator {
	return &Estimator{
		comp:           comp,
		timer:          timer,
		timerFrequency: timerFrequency,
	}
}

// Start arms the comparator, enables tick interrupts and takes the current
// output level as the edge detection baseline.
func (e *Estimator) Start() {
	e.comp.Start()
	e.timer.Listen()
	e.level = e.comp.OutputLevel()
}

// Stop disarms the comparator and disables tick interrupts.
func (e *Estimator) Stop() {
	e.comp.Stop()
	e.timer.Unlisten()
}

// ResetTimer acknowledges the pending tick interrupt.
func (e *Estimator) ResetTimer() {
	e.timer.ClearInterrupt()
}

// HandleCallback is the tick interrupt handler.
func (e *Estimator) HandleCallback() {
	if e.ticks > OverflowGuard {
		e.transitions = 0
		e.ticks = 0
	}

	if level := e.comp.OutputLevel(); level != e.level {
		e.transitions++
		e.level = level
	}
	e.ticks++
}

// CalculateFrequency returns the signal frequency in Hz. Each cycle has a
// rising and a falling edge, hence the division by two. Before the first
// tick there is no time base and the result is NaN.
func (e *Estimator) CalculateFrequency() float64 {
	if e.ticks == 0 {
		return math.NaN()
	}
	return e.timerFrequency * float64(e.transitions) / float64(e.ticks) / 2
}

// Counts returns the transition and tick counters.
func (e *Estimator) Counts() (transitions, ticks uint64) {
	return e.transitions, e.ticks
}

// SPDX-License-Identifier: MIT
/*
Package fft implements the spectral frequency estimator: a one-shot DMA
block capture from the ADC followed by a real FFT and a peak search.

Resource ownership:
- Idle: the estimator holds the ADC, the DMA channel and the sample buffer.
- InFlight: all three are lent to the running transfer.
- Moving: resources are being handed between the two, held by neither.

All methods must be called with exclusive access to the estimator (see
package critical); HandleCallback runs in interrupt context.
*/
package fft

import (
	"errors"
	"fmt"
	"math"

	"doppler/internal/hal"
	"doppler/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrInvalidResolution is returned for a non-positive frequency resolution.
var ErrInvalidResolution = errors.New("fft: frequency resolution must be positive")

// State tags who currently owns the capture resources.
type State int

const (
	Idle State = iota
	InFlight
	Moving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in-flight"
	case Moving:
		return "moving"
	default:
		return "unknown"
	}
}

// workspace holds pre-allocated buffers for the transform.
type workspace struct {
	input     []float64    // ...for converted samples
	fftOutput []complex128 // ...for FFT complex output
}

// Estimator measures the dominant frequency of the sampled signal.
type Estimator struct {
	// Resting storage, nil while lent to a transfer.
	adc hal.ADC
	dma hal.DMAChannel
	buf *hal.SampleBuffer

	// In-flight storage, nil while resting.
	transfer hal.Transfer

	state      State
	ready      bool
	resolution float64 // Hz per bin, sampleRate / TransformSize.
	bias       float64 // Subtracted from every sample during conversion.

	fftObj    *fourier.FFT
	workspace workspace
	observer  func(*hal.SampleBuffer)
}

// NewEstimator takes ownership of the ADC, its sample buffer and DMA
// channel. The ADC is switched to continuous conversion mode once here.
func NewEstimator(adc hal.ADC, buf *hal.SampleBuffer, dma hal.DMAChannel, resolution float64) (*Estimator, error) {
	if !bitint.IsPowerOfTwo(hal.TransformSize) {
		return nil, fmt.Errorf("fft: transform size must be a power of 2, got %d", hal.TransformSize)
	}
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("%w, got %f", ErrInvalidResolution, resolution)
	}
	if adc == nil || buf == nil || dma == nil {
		return nil, fmt.Errorf("fft: adc, buffer and dma channel are required")
	}

	adc.SetContinuous(true)

	return &Estimator{
		adc:        adc,
		dma:        dma,
		buf:        buf,
		state:      Idle,
		resolution: resolution,
		fftObj:     fourier.NewFFT(hal.TransformSize),
		workspace: workspace{
			input: make([]float64, hal.TransformSize),
			// FFT output size for real input is N/2 + 1 complex values.
			fftOutput: make([]complex128, hal.TransformSize/2+1),
		},
	}, nil
}

// Resolution returns the width of one spectral bin in Hz.
func (e *Estimator) Resolution() float64 {
	return e.resolution
}

// State reports who owns the capture resources.
func (e *Estimator) State() State {
	return e.state
}

// Ready reports whether a completed block is waiting to be analysed.
func (e *Estimator) Ready() bool {
	return e.ready
}

// SetBias sets the offset removed from each raw sample before the
// transform, typically the ADC mid-rail code.
func (e *Estimator) SetBias(bias float64) {
	e.bias = bias
}

// SetObserver registers fn to see every completed block before it is
// analysed. fn runs in the foreground and must not keep the buffer.
func (e *Estimator) SetObserver(fn func(*hal.SampleBuffer)) {
	e.observer = fn
}

// Start lends the resources to a new one-shot transfer. It is a no-op while
// a capture is already in flight.
func (e *Estimator) Start() {
	if e.state != Idle || e.adc == nil || e.dma == nil || e.buf == nil {
		return
	}

	e.state = Moving
	adc, dma, buf := e.adc, e.dma, e.buf
	e.adc, e.dma, e.buf = nil, nil, nil

	e.transfer = adc.StartTransfer(dma, buf)
	e.state = InFlight
}

// Stop waits for the in-flight transfer, halts the channel and takes the
// resources back. It also discards any block waiting to be analysed.
func (e *Estimator) Stop() {
	e.ready = false
	e.reclaim()
}

// HandleCallback is the capture-complete interrupt handler. The transfer
// is already finished when it runs, so reclaiming does not block. A
// completion that arrives after an explicit Stop finds nothing in flight
// and leaves the ready flag untouched.
func (e *Estimator) HandleCallback() {
	if e.reclaim() {
		e.ready = true
	}
}

// reclaim moves the resources from in-flight storage back to resting
// storage and reports whether a transfer was in flight.
func (e *Estimator) reclaim() bool {
	if e.state != InFlight || e.transfer == nil {
		return false
	}

	e.state = Moving
	transfer := e.transfer
	e.transfer = nil

	buf, dma, adc := transfer.Wait()
	dma.Stop()

	e.adc, e.dma, e.buf = adc, dma, buf
	e.state = Idle
	return true
}

// CalculateFrequency returns the frequency of the strongest bin of the last
// completed block, or NaN if no block is ready. Each block is analysed once.
// With restart set a new capture begins before the transform runs, so the
// next window starts without a gap.
func (e *Estimator) CalculateFrequency(restart bool) float64 {
	if !e.ready || e.state != Idle {
		return math.NaN()
	}
	e.ready = false

	if e.observer != nil {
		e.observer(e.buf)
	}

	for i, v := range e.buf {
		e.workspace.input[i] = float64(v) - e.bias
	}

	// The samples are copied out, the buffer can go straight back to DMA.
	if restart {
		e.Start()
	}

	e.fftObj.Coefficients(e.workspace.fftOutput, e.workspace.input)
	bin := PeakBin(e.workspace.fftOutput[:hal.TransformSize/2])

	return float64(bin) * e.resolution
}

// PeakBin returns the index of the bin with the strictly greatest squared
// magnitude; ties keep the earliest index. In the packed real spectrum
// layout the Nyquist coefficient sits in the imaginary part of the DC bin,
// so that part is cleared first and only the DC amplitude is compared.
func PeakBin(spectrum []complex128) int {
	if len(spectrum) == 0 {
		return 0
	}
	spectrum[0] = complex(real(spectrum[0]), 0)

	peakBin := 0
	peakPower := normSqr(spectrum[0])
	for i := 1; i < len(spectrum); i++ {
		if p := normSqr(spectrum[i]); p > peakPower {
			peakPower = p
			peakBin = i
		}
	}
	return peakBin
}

func normSqr(c complex128) float64 {
	re, im := real(c), imag(c)
	return re*re + im*im
}

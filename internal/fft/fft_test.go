// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"math/rand"
	"testing"

	"doppler/internal/hal"
	"doppler/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	testSampleRate = 16384
	testResolution = testSampleRate / hal.TransformSize // 4 Hz per bin
)

func newTestEstimator(t testing.TB) (*Estimator, *utils.FakeADC, *utils.FakeDMA) {
	t.Helper()
	adc := &utils.FakeADC{}
	dma := &utils.FakeDMA{}
	e, err := NewEstimator(adc, new(hal.SampleBuffer), dma, testResolution)
	require.NoError(t, err)
	return e, adc, dma
}

// capture runs one full acquisition of block.
func capture(e *Estimator, adc *utils.FakeADC, block *hal.SampleBuffer) {
	adc.Block = *block
	e.Start()
	e.HandleCallback()
}

func TestNewEstimator(t *testing.T) {
	e, adc, _ := newTestEstimator(t)
	assert.True(t, adc.Continuous, "ADC should be switched to continuous mode")
	assert.Equal(t, Idle, e.State())
	assert.False(t, e.Ready())
	assert.InDelta(t, 4.0, e.Resolution(), 1e-12)

	for _, res := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewEstimator(&utils.FakeADC{}, new(hal.SampleBuffer), &utils.FakeDMA{}, res)
		assert.ErrorIs(t, err, ErrInvalidResolution)
	}

	_, err := NewEstimator(nil, new(hal.SampleBuffer), &utils.FakeDMA{}, testResolution)
	assert.Error(t, err)
}

func TestStartStopOwnership(t *testing.T) {
	e, adc, dma := newTestEstimator(t)

	e.Start()
	assert.Equal(t, InFlight, e.State())
	assert.Nil(t, e.adc)
	assert.Nil(t, e.dma)
	assert.Nil(t, e.buf)
	assert.NotNil(t, e.transfer)

	// A second start while in flight is a no-op.
	e.Start()
	assert.Equal(t, 1, adc.Starts)

	e.Stop()
	assert.Equal(t, Idle, e.State())
	assert.NotNil(t, e.adc)
	assert.NotNil(t, e.dma)
	assert.NotNil(t, e.buf)
	assert.Nil(t, e.transfer)
	assert.Equal(t, 1, dma.Stops)
	assert.False(t, e.Ready())

	// Stop is idempotent.
	e.Stop()
	assert.Equal(t, 1, dma.Stops)
	assert.Equal(t, Idle, e.State())
}

func TestNotReadyReturnsNaN(t *testing.T) {
	e, _, _ := newTestEstimator(t)
	assert.True(t, math.IsNaN(e.CalculateFrequency(false)))

	e.Start()
	assert.True(t, math.IsNaN(e.CalculateFrequency(true)), "in-flight capture must not be analysed")
	assert.Equal(t, InFlight, e.State())
}

func TestCallbackAfterStopIsIgnored(t *testing.T) {
	e, _, _ := newTestEstimator(t)
	e.Start()
	e.Stop()
	e.HandleCallback()

	assert.False(t, e.Ready())
	assert.True(t, math.IsNaN(e.CalculateFrequency(false)))
}

func TestCalculateFrequencyTone(t *testing.T) {
	tests := []struct {
		name string
		bin  int
	}{
		{"Low bin", 3},
		{"Doppler 100 km/h", 487},
		{"Near Nyquist", hal.TransformSize/2 - 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, adc, _ := newTestEstimator(t)
			e.SetBias(2048)

			var block hal.SampleBuffer
			utils.GenerateBinTone(block[:], tt.bin, 1500)
			capture(e, adc, &block)

			require.True(t, e.Ready())
			got := e.CalculateFrequency(false)
			assert.Equal(t, float64(tt.bin)*testResolution, got)

			// One-shot: the same block is never analysed twice.
			assert.False(t, e.Ready())
			assert.True(t, math.IsNaN(e.CalculateFrequency(false)))
		})
	}
}

func TestRawSamplesPeakAtDC(t *testing.T) {
	// Without a bias every sample is positive, which puts the largest
	// magnitude in the DC bin.
	e, adc, _ := newTestEstimator(t)

	var block hal.SampleBuffer
	utils.GenerateBinTone(block[:], 100, 1500)
	capture(e, adc, &block)

	assert.Equal(t, 0.0, e.CalculateFrequency(false))
}

func TestCalculateFrequencyRestart(t *testing.T) {
	e, adc, _ := newTestEstimator(t)
	e.SetBias(2048)

	var block hal.SampleBuffer
	utils.GenerateBinTone(block[:], 250, 1000)
	capture(e, adc, &block)

	got := e.CalculateFrequency(true)
	assert.Equal(t, float64(250*testResolution), got)
	assert.Equal(t, InFlight, e.State(), "restart should begin the next capture")
	assert.Equal(t, 2, adc.Starts)
	assert.False(t, e.Ready())

	e.HandleCallback()
	assert.True(t, e.Ready())
}

func TestObserverSeesBlock(t *testing.T) {
	e, adc, _ := newTestEstimator(t)

	var seen uint16
	e.SetObserver(func(buf *hal.SampleBuffer) { seen = buf[10] })

	var block hal.SampleBuffer
	block[10] = 777
	capture(e, adc, &block)
	e.CalculateFrequency(false)

	assert.Equal(t, uint16(777), seen)
}

// TestPeakBinMatchesReference checks the peak against an independent
// squared-magnitude search over random blocks.
func TestPeakBinMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fftObj := fourier.NewFFT(hal.TransformSize)
	input := make([]float64, hal.TransformSize)
	coeffs := make([]complex128, hal.TransformSize/2+1)
	power := make([]float64, hal.TransformSize/2)

	for trial := range 20 {
		for i := range input {
			input[i] = float64(rng.Intn(4096)) - 2048
		}
		// Pull one bin above the noise on most trials.
		if trial%4 != 0 {
			bin := rng.Intn(hal.TransformSize / 2)
			for i := range input {
				input[i] += 800 * math.Cos(2*math.Pi*float64(bin*i)/hal.TransformSize)
			}
		}

		fftObj.Coefficients(coeffs, input)
		spectrum := coeffs[:hal.TransformSize/2]
		for i, c := range spectrum {
			if i == 0 {
				c = complex(real(c), 0)
			}
			power[i] = real(c)*real(c) + imag(c)*imag(c)
		}

		want := utils.FindPeakBin(power, 0, len(power)-1)
		got := PeakBin(spectrum)
		assert.Equal(t, want, got, "trial %d", trial)
	}
}

func TestPeakBinClearsDCImaginary(t *testing.T) {
	// A large packed Nyquist term must not make the DC bin win.
	spectrum := []complex128{complex(1, 100), complex(0, 5), complex(3, 0)}
	assert.Equal(t, 1, PeakBin(spectrum))
	assert.Equal(t, 0.0, imag(spectrum[0]))
}

func TestPeakBinTies(t *testing.T) {
	spectrum := []complex128{1, complex(0, 2), 2, complex(-2, 0)}
	assert.Equal(t, 1, PeakBin(spectrum))
	assert.Equal(t, 0, PeakBin([]complex128{5, 5, 5}))
	assert.Equal(t, 0, PeakBin(nil))
}

func TestCalculateFrequencyHotPath(t *testing.T) {
	e, adc, _ := newTestEstimator(t)
	e.SetBias(2048)
	utils.GenerateBinTone(adc.Block[:], 300, 1200)

	// Warm-up call (potential initial allocations).
	e.Start()
	e.HandleCallback()
	e.CalculateFrequency(true)

	allocs := testing.AllocsPerRun(100, func() {
		e.HandleCallback()
		e.CalculateFrequency(true)
	})

	// Every restart allocates the transfer handle, nothing else may.
	if allocs > 1 {
		t.Errorf("Expected at most one allocation per measurement, got %.1f", allocs)
	}
}

func BenchmarkCalculateFrequency(b *testing.B) {
	e, adc, _ := newTestEstimator(b)
	e.SetBias(2048)
	utils.GenerateSineWave(adc.Block[:], testSampleRate, 1949, 1500)

	b.ReportAllocs()

	for b.Loop() {
		e.Start()
		e.HandleCallback()
		e.CalculateFrequency(false)
	}
}

// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"strconv"
	"testing"

	"doppler/internal/hal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 16384

// hill returns n magnitudes peaking at peak.
func hill(n, peak int) []float64 {
	mags := make([]float64, n)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-peak), 2))
	}
	return mags
}

// crossings counts mid-rail crossings, two per cycle.
func crossings(buf []uint16) int {
	n := 0
	for i := 1; i < len(buf); i++ {
		if (buf[i-1] < 2048) != (buf[i] < 2048) {
			n++
		}
	}
	return n
}

func TestMockTransport(t *testing.T) {
	mt := &MockTransport{}
	assert.Nil(t, mt.Last())

	for i := range 3 {
		require.NoError(t, mt.Send(i))
	}
	assert.Len(t, mt.Frames, 3)
	assert.Equal(t, 2, mt.Last())

	require.NoError(t, mt.Close())
	assert.True(t, mt.Closed)
}

func TestGenerateSineWave(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		frequency  float64
	}{
		{"1 kHz", testSampleRate, 1000},
		{"walking pace", testSampleRate, 100},
		{"48 kHz card", 48000, 1949},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]uint16, hal.TransformSize)
			GenerateSineWave(buf, tt.sampleRate, tt.frequency, 1000)

			want := 2 * tt.frequency * float64(len(buf)) / tt.sampleRate
			assert.InDelta(t, want, float64(crossings(buf)), 0.05*want+2)
		})
	}
}

func TestGenerateSineWaveClamps(t *testing.T) {
	buf := make([]uint16, 1024)
	GenerateSineWave(buf, testSampleRate, 1000, 5000)

	assert.Contains(t, buf, uint16(0))
	assert.Contains(t, buf, uint16(4095))
	for _, v := range buf {
		require.LessOrEqual(t, v, uint16(4095))
	}
}

func TestGenerateBinTone(t *testing.T) {
	buf := make([]uint16, hal.TransformSize)
	GenerateBinTone(buf, 250, 1000)

	assert.Equal(t, uint16(2048), buf[0])
	assert.InDelta(t, 500, crossings(buf), 2)
}

func TestFindPeakBin(t *testing.T) {
	mags := hill(1024, 256)

	tests := []struct {
		name       string
		mags       []float64
		start, end int
		want       int
	}{
		{"full range", mags, 0, 1023, 256},
		{"partial range", mags, 128, 1023, 256},
		{"range past the peak", mags, 300, 1023, 300},
		{"negative start", mags, -10, 1023, 256},
		{"end past the slice", mags, 0, 2048, 256},
		{"ties keep first", []float64{1, 3, 3, 2}, 0, 3, 1},
		{"single value", []float64{1}, 0, 0, 0},
		{"empty", nil, 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindPeakBin(tt.mags, tt.start, tt.end))
		})
	}

	allocs := testing.AllocsPerRun(100, func() {
		FindPeakBin(mags, 0, len(mags)-1)
	})
	assert.Zero(t, allocs)
}

func TestFakeBoardTransfer(t *testing.T) {
	board, adc, _, _, _ := NewFakeBoard(testSampleRate, 16000)
	adc.Block[7] = 1234

	buf, ch, gotADC := board.ADC.StartTransfer(board.DMA, board.Buffer).Wait()

	assert.Same(t, board.Buffer, buf)
	assert.Equal(t, board.DMA, ch)
	assert.Equal(t, board.ADC, gotADC)
	assert.Equal(t, uint16(1234), buf[7])
}

func BenchmarkGenerateBinTone(b *testing.B) {
	buf := make([]uint16, hal.TransformSize)
	b.ReportAllocs()
	for b.Loop() {
		GenerateBinTone(buf, 250, 1000)
	}
}

func BenchmarkFindPeakBin(b *testing.B) {
	for _, size := range []int{64, 1024, hal.TransformSize / 2} {
		mags := hill(size, size/2)
		b.Run(strconv.Itoa(size), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				FindPeakBin(mags, 0, size-1)
			}
		})
	}
}

package utils

import (
	"math"
	"sync"
)

// MockTransport implements the Transport interface for testing.
type MockTransport struct {
	mu     sync.Mutex
	Frames []any
	Closed bool
}

// Send stores the data for later inspection instead of transmitting.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = append(m.Frames, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Last returns the most recent frame or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Frames) == 0 {
		return nil
	}
	return m.Frames[len(m.Frames)-1]
}

// GenerateSineWave fills buf with a 12-bit sine centred on mid-rail.
func GenerateSineWave(buf []uint16, sampleRate, frequency, amplitude float64) {
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = clamp12(2048 + amplitude*math.Sin(2*math.Pi*frequency*t))
	}
}

// GenerateBinTone fills buf with a sine that completes exactly bin cycles
// over the buffer, so all of its energy lands in that bin.
func GenerateBinTone(buf []uint16, bin int, amplitude float64) {
	n := float64(len(buf))
	for i := range buf {
		buf[i] = clamp12(2048 + amplitude*math.Sin(2*math.Pi*float64(bin)*float64(i)/n))
	}
}

func clamp12(v float64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 4095:
		return 4095
	default:
		return uint16(math.Round(v))
	}
}

// FindPeakBin is a straightforward reference search over magnitudes.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

// SPDX-License-Identifier: MIT
package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/go-audio/wav"
)

// MaxCode is the largest 12-bit converter output.
const MaxCode = 4095

// Waveform is the analog signal at the radar IF output, in ADC codes.
type Waveform interface {
	// At returns the signal level t seconds after power-up. It must be safe
	// for concurrent use.
	At(t float64) float64
}

// Tone is a sine Doppler return riding on a DC offset, plus Gaussian noise.
type Tone struct {
	Frequency float64 // Hz
	Amplitude float64 // Peak, in ADC codes.
	Offset    float64 // DC level, in ADC codes.
	Noise     float64 // Standard deviation, in ADC codes.
}

// At implements Waveform.
func (w Tone) At(t float64) float64 {
	v := w.Offset + w.Amplitude*math.Sin(2*math.Pi*w.Frequency*t)
	if w.Noise > 0 {
		v += w.Noise * rand.NormFloat64()
	}
	return v
}

// Replay loops a recorded signal.
type Replay struct {
	samples    []float64 // ADC codes.
	sampleRate float64
}

// NewReplay wraps samples already in ADC codes, recorded at sampleRate.
func NewReplay(samples []float64, sampleRate float64) (*Replay, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("replay: no samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("replay: invalid sample rate %f", sampleRate)
	}
	return &Replay{samples: samples, sampleRate: sampleRate}, nil
}

// LoadWAV decodes a PCM WAV file into a Replay. The first channel is used and
// rescaled from the file's bit depth onto the 12-bit converter range.
func LoadWAV(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav file: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := int(d.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}

	samples := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, toCode(buf.Data[i], bitDepth))
	}
	return NewReplay(samples, float64(buf.Format.SampleRate))
}

// toCode maps a PCM sample onto the converter range. 12-bit files hold
// codes already; 8-bit PCM is unsigned, wider depths are signed.
func toCode(v, bitDepth int) float64 {
	switch {
	case bitDepth == 12:
		return float64(v)
	case bitDepth == 8:
		return float64(v) * (MaxCode + 1) / 256
	default:
		full := float64(int64(1) << (bitDepth - 1))
		return (MaxCode+1)/2 + float64(v)*(MaxCode+1)/2/full
	}
}

// At implements Waveform with sample-and-hold between recorded samples.
func (r *Replay) At(t float64) float64 {
	i := int64(t * r.sampleRate)
	n := int64(len(r.samples))
	return r.samples[((i%n)+n)%n]
}

// Duration returns the length of one loop in seconds.
func (r *Replay) Duration() float64 {
	return float64(len(r.samples)) / r.sampleRate
}

// quantize clips v to a converter code.
func quantize(v float64) uint16 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= MaxCode:
		return MaxCode
	default:
		return uint16(math.Round(v))
	}
}

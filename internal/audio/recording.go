// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"doppler/internal/hal"
	applog "doppler/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recordingBitDepth is the WAV sample width. 12-bit codes are stored
// left-aligned in 16-bit PCM.
const recordingBitDepth = 16

// DefaultFileName returns a timestamped recording name.
func DefaultFileName(now time.Time) string {
	return "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
}

// Recorder writes every captured block to a mono WAV file.
type Recorder struct {
	isRecording int32 // Atomic flag for thread-safe state
	filename    string
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *audio.IntBuffer // Reusable buffer for format conversion
	blocks      int
}

// NewRecorder creates filename and starts recording at sampleRate.
func NewRecorder(filename string, sampleRate float64) (*Recorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	r := &Recorder{
		filename:   filename,
		outputFile: file,
		wavEncoder: wav.NewEncoder(file, int(sampleRate), recordingBitDepth, 1, 1),
		sampleBuf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: 1,
				SampleRate:  int(sampleRate),
			},
			Data:           make([]int, hal.TransformSize),
			SourceBitDepth: recordingBitDepth,
		},
	}
	atomic.StoreInt32(&r.isRecording, 1)

	applog.Infof("Recorder: Recording blocks to %s", filename)
	return r, nil
}

// Filename returns the output path.
func (r *Recorder) Filename() string {
	return r.filename
}

// Blocks returns the number of blocks written.
func (r *Recorder) Blocks() int {
	return r.blocks
}

// WriteBlock appends one block.
// Performance Critical (Hot Path):
// - Uses the pre-allocated conversion buffer only
func (r *Recorder) WriteBlock(buf *hal.SampleBuffer) error {
	if atomic.LoadInt32(&r.isRecording) == 0 {
		return fmt.Errorf("recorder is closed")
	}

	for i, code := range buf {
		r.sampleBuf.Data[i] = (int(code) - midRail) << (recordingBitDepth - 12)
	}
	if err := r.wavEncoder.Write(r.sampleBuf); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}
	r.blocks++
	return nil
}

// Observe is a block observer for the spectral estimator. Errors are
// logged, the measurement loop keeps running.
func (r *Recorder) Observe(buf *hal.SampleBuffer) {
	if err := r.WriteBlock(buf); err != nil {
		applog.Errorf("Recorder: %v", err)
	}
}

// Close finalizes the WAV header and closes the file.
func (r *Recorder) Close() error {
	if atomic.SwapInt32(&r.isRecording, 0) == 0 {
		return nil
	}

	if r.wavEncoder != nil {
		if err := r.wavEncoder.Close(); err != nil {
			r.outputFile.Close()
			return err
		}
		r.wavEncoder = nil
	}

	if r.outputFile != nil {
		if err := r.outputFile.Close(); err != nil {
			return err
		}
		r.outputFile = nil
	}

	applog.Infof("Recorder: Saved %d block(s) to %s", r.blocks, r.filename)
	return nil
}

// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doppler/internal/hal"

	"github.com/go-audio/wav"
)

const testSampleRate = 16384

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test_recording.wav")

	r, err := NewRecorder(filename, testSampleRate)
	if err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	if r.Filename() != filename {
		t.Errorf("Filename() = %q", r.Filename())
	}
	if r.sampleBuf.Format.SampleRate != testSampleRate {
		t.Errorf("Buffer sample rate mismatch: got %d", r.sampleBuf.Format.SampleRate)
	}
	if len(r.sampleBuf.Data) != hal.TransformSize {
		t.Errorf("Buffer size mismatch: got %d", len(r.sampleBuf.Data))
	}

	var block hal.SampleBuffer
	for i := range block {
		block[i] = uint16(i % 4096)
	}
	for range 3 {
		if err := r.WriteBlock(&block); err != nil {
			t.Fatalf("WriteBlock error: %v", err)
		}
	}

	outputFile := r.outputFile
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}
	if r.outputFile != nil || r.wavEncoder != nil {
		t.Error("Output file and encoder should be nil after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}

	// Closing twice is a no-op, writing after close fails.
	if err := r.Close(); err != nil {
		t.Errorf("second Close error: %v", err)
	}
	if err := r.WriteBlock(&block); err == nil || !strings.Contains(err.Error(), "closed") {
		t.Errorf("expected closed error, got %v", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("Recording file was not created: %v", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatal("recording is not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(buf.Data) != 3*hal.TransformSize {
		t.Fatalf("expected %d samples, got %d", 3*hal.TransformSize, len(buf.Data))
	}
	if d.BitDepth != recordingBitDepth || buf.Format.NumChannels != 1 {
		t.Errorf("unexpected format: %d bit, %d channel(s)", d.BitDepth, buf.Format.NumChannels)
	}
	for i := range 10 {
		if want := (int(block[i]) - midRail) * 16; buf.Data[i] != want {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], want)
		}
	}
}

func TestRecordingInvalidPath(t *testing.T) {
	if _, err := NewRecorder("/nonexistent/path/file.wav", testSampleRate); err == nil {
		t.Error("Expected error but got none")
	}
}

func TestRecorderObserve(t *testing.T) {
	r, err := NewRecorder(filepath.Join(t.TempDir(), "observe.wav"), testSampleRate)
	if err != nil {
		t.Fatal(err)
	}
	var block hal.SampleBuffer
	r.Observe(&block)
	r.Observe(&block)
	if r.Blocks() != 2 {
		t.Errorf("Blocks() = %d, want 2", r.Blocks())
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	r.Observe(&block) // Logged, not fatal.
	if r.Blocks() != 2 {
		t.Errorf("Blocks() = %d after close", r.Blocks())
	}
}

func TestDefaultFileName(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)
	if got, want := DefaultFileName(now), "recording-09-03-2026-140507.wav"; got != want {
		t.Errorf("DefaultFileName() = %q, want %q", got, want)
	}
}

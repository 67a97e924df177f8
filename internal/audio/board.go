// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"sync"

	"doppler/internal/hal"
	"doppler/internal/sim"
)

// BoardOptions configures a sound card board.
type BoardOptions struct {
	Capture   CaptureOptions
	TimerRate float64 // Reference timer rate (Hz).
	Threshold float64 // Comparator switching level (ADC codes).
}

// NewBoard builds a board around a sound card capture. The comparator
// watches the same captured signal, sampled by a wall-clock paced reference
// timer. PortAudio must be initialized.
func NewBoard(opts BoardOptions) (*hal.Board, error) {
	capture, err := OpenCapture(opts.Capture)
	if err != nil {
		return nil, err
	}

	timer := sim.NewTimer(opts.TimerRate)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		timer.Run(ctx)
	}()

	return &hal.Board{
		ADC:        capture,
		DMA:        &Channel{capture: capture},
		Completion: capture,
		Buffer:     new(hal.SampleBuffer),
		SampleRate: opts.Capture.SampleRate,
		Comparator: sim.NewComparator(capture, opts.Threshold, timer.Clock()),
		Timer:      timer,
		Close: func() error {
			cancel()
			wg.Wait()
			return errors.Join(capture.Close())
		},
	}, nil
}

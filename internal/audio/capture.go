// SPDX-License-Identifier: MIT
/*
Package audio turns a sound card input into the radar's capture hardware.

The IF output of the radar module is wired to a line input. A PortAudio
input stream plays the part of the converter in continuous mode: every
callback's samples are rescaled to 12-bit codes, copied into the block of
the armed transfer (the DMA channel), and once the block is full the
capture-complete interrupt is raised from the callback goroutine.

Thread Safety:
- The stream callback and the estimator side share one mutex per capture
- Blocks are handed over only after they are fully written
- Pre-allocates buffers to avoid GC in hot path
*/
package audio

import (
	"fmt"
	"sync"
	"time"

	"doppler/internal/hal"
	applog "doppler/internal/log"

	"github.com/gordonklaus/portaudio"
)

const (
	midRail  = 2048 // 12-bit code of a zero input
	bitShift = 20   // int32 full scale onto 12 bits

	// DefaultComparatorDelay is how far the comparator view trails the
	// stream, enough to cover the host audio latency.
	DefaultComparatorDelay = 100 * time.Millisecond
)

// CaptureOptions configures a sound card capture.
type CaptureOptions struct {
	DeviceID   int
	SampleRate float64
	Channels   int // Only the first channel is used.
	LowLatency bool
	Squelch    int32 // Block peak at or below which blocks are flattened, 0 disables.
}

// Capture is a sound card input acting as the converter, its DMA channel
// and the completion interrupt source.
type Capture struct {
	sampleRate float64
	channels   int
	squelch    int32
	delay      float64 // Comparator delay (s).
	stream     *portaudio.Stream

	mu         sync.Mutex
	onComplete hal.Handler
	continuous bool
	active     *transfer
	fill       int
	history    []uint16 // Last second of codes for the comparator.
	written    int64    // Codes written since the stream started.
}

func newCapture(sampleRate float64, channels int, squelch int32) *Capture {
	if channels < 1 {
		channels = 1
	}
	return &Capture{
		sampleRate: sampleRate,
		channels:   channels,
		squelch:    squelch,
		delay:      DefaultComparatorDelay.Seconds(),
		history:    make([]uint16, max(int(sampleRate), hal.TransformSize)),
	}
}

// OpenCapture opens and starts an input stream on the selected device.
// PortAudio must be initialized.
func OpenCapture(opts CaptureOptions) (*Capture, error) {
	device, err := InputDevice(opts.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := min(max(opts.Channels, 1), device.MaxInputChannels)
	c := newCapture(opts.SampleRate, channels, opts.Squelch)

	latency := device.DefaultHighInputLatency
	if opts.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
		SampleRate:      opts.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInputStream)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream on %s: %w", device.Name, err)
	}
	c.stream = stream

	applog.Infof("Audio: Capturing from %s at %.0f Hz (%d channel(s), latency %v)",
		device.Name, opts.SampleRate, channels, latency)
	return c, nil
}

// Close stops the stream. A transfer still in flight completes with the
// samples it has.
func (c *Capture) Close() error {
	var err error
	if c.stream != nil {
		if stopErr := c.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := c.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		c.stream = nil
	}
	c.abort()
	return err
}

func (c *Capture) SetContinuous(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.continuous = enabled
}

func (c *Capture) OnTransferComplete(h hal.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = h
}

// StartTransfer arms buf to receive the next TransformSize samples.
func (c *Capture) StartTransfer(ch hal.DMAChannel, buf *hal.SampleBuffer) hal.Transfer {
	tr := &transfer{capture: c, ch: ch, buf: buf, done: make(chan struct{})}

	c.mu.Lock()
	c.active = tr
	c.fill = 0
	c.mu.Unlock()
	return tr
}

// processInputStream is the stream callback.
func (c *Capture) processInputStream(in []int32) {
	c.feed(in)
}

// feed consumes interleaved frames.
// Performance Critical (Hot Path):
// - No allocations
// - The interrupt handler runs after the lock is released
func (c *Capture) feed(in []int32) {
	var completed *transfer

	c.mu.Lock()
	n := int64(len(c.history))
	for i := 0; i < len(in); i += c.channels {
		code := uint16(midRail + in[i]>>bitShift)
		c.history[c.written%n] = code
		c.written++

		if c.active != nil {
			c.active.buf[c.fill] = code
			c.fill++
			if c.fill == hal.TransformSize {
				completed = c.active
				c.active = nil
				c.fill = 0
			}
		}
	}
	handler := c.onComplete
	c.mu.Unlock()

	if completed == nil {
		return
	}
	Squelch(completed.buf, c.squelch)
	close(completed.done)
	if handler != nil {
		handler()
	}
}

// abort ends the armed transfer early.
func (c *Capture) abort() {
	c.mu.Lock()
	tr := c.active
	c.active = nil
	c.fill = 0
	c.mu.Unlock()

	if tr != nil {
		applog.Warnf("Audio: Capture halted with a partial block")
		close(tr.done)
	}
}

// At returns the code that arrived t seconds after the stream started,
// delayed by the comparator delay, so the capture can drive a comparator.
// Before any sample arrives it reads mid-rail.
func (c *Capture) At(t float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.written == 0 {
		return midRail
	}
	n := int64(len(c.history))
	i := int64((t - c.delay) * c.sampleRate)
	i = min(max(i, c.written-n, 0), c.written-1)
	return float64(c.history[i%n])
}

// transfer is an armed block.
type transfer struct {
	capture *Capture
	ch      hal.DMAChannel
	buf     *hal.SampleBuffer
	done    chan struct{}
}

func (t *transfer) Wait() (*hal.SampleBuffer, hal.DMAChannel, hal.ADC) {
	<-t.done
	return t.buf, t.ch, t.capture
}

// Channel is the DMA channel of a capture. Stopping it halts the armed
// transfer.
type Channel struct {
	capture *Capture
}

// Stop halts an armed transfer; it is a no-op once the block is complete.
func (ch *Channel) Stop() {
	ch.capture.abort()
}

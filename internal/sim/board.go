// SPDX-License-Identifier: MIT
/*
Package sim simulates the radar board: a converter with a one-shot DMA
transfer, an analog comparator and the 16 kHz reference timer, all fed by
one Waveform.

Time is virtual. The converter advances its own sample clock by one block per
transfer and the timer advances a tick clock that the comparator samples, so
the estimators see a consistent signal whether the board runs paced to the
wall clock or stepped by a test.
*/
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"doppler/internal/hal"
	applog "doppler/internal/log"
)

// Options configures a simulated board.
type Options struct {
	SampleRate float64 // Converter rate (Hz).
	TimerRate  float64 // Reference timer rate (Hz).
	Threshold  float64 // Comparator switching level (ADC codes).

	// Realtime paces transfers and ticks to the wall clock. Without it
	// transfers complete immediately and ticks only come from Timer.Step.
	Realtime bool
}

// ADC simulates the converter, its DMA channel and the completion
// interrupt.
type ADC struct {
	wave       Waveform
	sampleRate float64
	realtime   bool

	mu         sync.Mutex
	onComplete hal.Handler
	next       int64 // Sample clock of the next conversion.
	continuous bool

	ctx context.Context
}

// NewADC returns a converter sampling wave at sampleRate. ctx bounds the
// lifetime of in-flight transfers.
func NewADC(ctx context.Context, wave Waveform, sampleRate float64, realtime bool) *ADC {
	return &ADC{wave: wave, sampleRate: sampleRate, realtime: realtime, ctx: ctx}
}

func (a *ADC) SetContinuous(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.continuous = enabled
}

// Continuous reports whether continuous conversion is selected.
func (a *ADC) Continuous() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.continuous
}

func (a *ADC) OnTransferComplete(h hal.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onComplete = h
}

// StartTransfer fills buf on its own goroutine and raises the completion
// interrupt once the block is written.
func (a *ADC) StartTransfer(ch hal.DMAChannel, buf *hal.SampleBuffer) hal.Transfer {
	a.mu.Lock()
	start := a.next
	a.next += hal.TransformSize
	handler := a.onComplete
	a.mu.Unlock()

	tr := &transfer{adc: a, ch: ch, buf: buf, done: make(chan struct{})}
	dma, _ := ch.(*DMA)

	go func() {
		if a.realtime {
			duration := time.Duration(float64(hal.TransformSize) / a.sampleRate * float64(time.Second))
			timer := time.NewTimer(duration)
			select {
			case <-timer.C:
			case <-a.ctx.Done():
				timer.Stop()
			case <-dma.halted():
				timer.Stop()
			}
		}

		for i := range buf {
			t := float64(start+int64(i)) / a.sampleRate
			buf[i] = quantize(a.wave.At(t))
		}
		close(tr.done)

		if handler != nil {
			handler()
		}
	}()
	return tr
}

// transfer is an in-flight block.
type transfer struct {
	adc  *ADC
	ch   hal.DMAChannel
	buf  *hal.SampleBuffer
	done chan struct{}
}

func (t *transfer) Wait() (*hal.SampleBuffer, hal.DMAChannel, hal.ADC) {
	<-t.done
	return t.buf, t.ch, t.adc
}

// DMA simulates the transfer channel.
type DMA struct {
	mu    sync.Mutex
	stop  chan struct{}
	stops int
}

// NewDMA returns an idle channel.
func NewDMA() *DMA {
	return &DMA{stop: make(chan struct{})}
}

// Stop halts the channel and rearms it for the next transfer.
func (d *DMA) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	close(d.stop)
	d.stop = make(chan struct{})
	d.stops++
}

// Stops returns how often the channel was halted.
func (d *DMA) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// halted returns a channel closed by the next Stop. A nil receiver never
// halts.
func (d *DMA) halted() <-chan struct{} {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop
}

// Clock is the free-running tick counter of the reference timer.
type Clock struct {
	ticks atomic.Int64
	rate  float64
}

// Now returns the virtual time in seconds.
func (c *Clock) Now() float64 {
	return float64(c.ticks.Load()) / c.rate
}

// Comparator compares the waveform against a fixed threshold at the timer's
// virtual time.
type Comparator struct {
	wave      Waveform
	threshold float64
	clock     *Clock
	running   atomic.Bool
}

// NewComparator returns a disarmed comparator.
func NewComparator(wave Waveform, threshold float64, clock *Clock) *Comparator {
	return &Comparator{wave: wave, threshold: threshold, clock: clock}
}

func (c *Comparator) Start() { c.running.Store(true) }
func (c *Comparator) Stop() { c.running.Store(false) }

// Running reports whether the comparator is armed.
func (c *Comparator) Running() bool { return c.running.Load() }

// OutputLevel is low while the comparator is disarmed.
func (c *Comparator) OutputLevel() bool {
	if !c.running.Load() {
		return false
	}
	return c.wave.At(c.clock.Now()) > c.threshold
}

// Timer simulates the reference timer. Its clock always runs; the tick
// interrupt is only raised while listening.
type Timer struct {
	clock     *Clock
	listening atomic.Bool
	pending   atomic.Bool
	missed    atomic.Int64

	mu      sync.Mutex
	handler hal.Handler
}

// NewTimer returns a timer ticking at rate Hz and the clock it drives.
func NewTimer(rate float64) *Timer {
	return &Timer{clock: &Clock{rate: rate}}
}

// Clock returns the timer's tick clock.
func (t *Timer) Clock() *Clock { return t.clock }

func (t *Timer) Listen() { t.listening.Store(true) }
func (t *Timer) Unlisten() { t.listening.Store(false) }
func (t *Timer) ClearInterrupt() { t.pending.Store(false) }
func (t *Timer) Rate() float64 { return t.clock.rate }
func (t *Timer) Listening() bool { return t.listening.Load() }
func (t *Timer) Unacknowledged() int64 { return t.missed.Load() }

func (t *Timer) OnTick(h hal.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Step advances the clock by n ticks, raising the interrupt for each one
// while listening. A tick raised while the previous one is still pending
// counts as unacknowledged.
func (t *Timer) Step(n int) {
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()

	for range n {
		t.clock.ticks.Add(1)
		if !t.listening.Load() || handler == nil {
			continue
		}
		if t.pending.Swap(true) {
			t.missed.Add(1)
		}
		handler()
	}
}

// Run paces Step to the wall clock until ctx is done. Ticks are delivered
// in batches every millisecond.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	var delivered int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due := int64(now.Sub(start).Seconds() * t.clock.rate)
			if n := due - delivered; n > 0 {
				t.Step(int(n))
				delivered = due
			}
		}
	}
}

// Board is a simulated board together with its parts.
type Board struct {
	hal.Board

	SimADC        *ADC
	SimDMA        *DMA
	SimComparator *Comparator
	SimTimer      *Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBoard assembles a simulated board around wave. In realtime mode the
// timer starts pacing immediately; Close stops it.
func NewBoard(wave Waveform, opts Options) *Board {
	ctx, cancel := context.WithCancel(context.Background())

	timer := NewTimer(opts.TimerRate)
	b := &Board{
		SimADC:        NewADC(ctx, wave, opts.SampleRate, opts.Realtime),
		SimDMA:        NewDMA(),
		SimComparator: NewComparator(wave, opts.Threshold, timer.Clock()),
		SimTimer:      timer,
		cancel:        cancel,
	}
	b.Board = hal.Board{
		ADC:        b.SimADC,
		DMA:        b.SimDMA,
		Completion: b.SimADC,
		Buffer:     new(hal.SampleBuffer),
		SampleRate: opts.SampleRate,
		Comparator: b.SimComparator,
		Timer:      b.SimTimer,
		Close:      b.close,
	}

	if opts.Realtime {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			timer.Run(ctx)
		}()
	}

	applog.Infof("Sim: Board ready (%.0f Hz converter, %.0f Hz timer, realtime=%t)",
		opts.SampleRate, opts.TimerRate, opts.Realtime)
	return b
}

func (b *Board) close() error {
	b.cancel()
	b.wg.Wait()
	if n := b.SimTimer.Unacknowledged(); n > 0 {
		applog.Warnf("Sim: %d timer ticks were raised before the previous one was acknowledged", n)
	}
	return nil
}

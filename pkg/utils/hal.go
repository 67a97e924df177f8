package utils

import (
	"sync"

	"doppler/internal/hal"
)

// FakeADC completes every transfer synchronously by copying Block into the
// lent buffer.
type FakeADC struct {
	Block      hal.SampleBuffer
	Continuous bool
	Starts     int
}

func (a *FakeADC) SetContinuous(enabled bool) {
	a.Continuous = enabled
}

func (a *FakeADC) StartTransfer(ch hal.DMAChannel, buf *hal.SampleBuffer) hal.Transfer {
	a.Starts++
	*buf = a.Block
	return &FakeTransfer{adc: a, ch: ch, buf: buf}
}

// FakeTransfer hands the lent resources back on Wait.
type FakeTransfer struct {
	adc    hal.ADC
	ch     hal.DMAChannel
	buf    *hal.SampleBuffer
	Waited bool
}

func (t *FakeTransfer) Wait() (*hal.SampleBuffer, hal.DMAChannel, hal.ADC) {
	t.Waited = true
	return t.buf, t.ch, t.adc
}

// FakeDMA counts stops.
type FakeDMA struct {
	Stops int
}

func (d *FakeDMA) Stop() {
	d.Stops++
}

// FakeCompletion stores the capture-complete handler.
type FakeCompletion struct {
	mu      sync.Mutex
	handler hal.Handler
}

func (c *FakeCompletion) OnTransferComplete(h hal.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Fire raises the capture-complete interrupt.
func (c *FakeCompletion) Fire() {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h()
	}
}

// FakeComparator returns Level as its output.
type FakeComparator struct {
	Level   bool
	Running bool
	Starts  int
	Stops   int
}

func (c *FakeComparator) Start() {
	c.Running = true
	c.Starts++
}

func (c *FakeComparator) Stop() {
	c.Running = false
	c.Stops++
}

func (c *FakeComparator) OutputLevel() bool {
	return c.Level
}

// FakeTimer raises ticks on demand.
type FakeTimer struct {
	TickRate  float64
	Listening bool
	Cleared   int
	handler   hal.Handler
}

func (t *FakeTimer) Listen() { t.Listening = true }
func (t *FakeTimer) Unlisten() { t.Listening = false }
func (t *FakeTimer) ClearInterrupt() { t.Cleared++ }
func (t *FakeTimer) OnTick(h hal.Handler) { t.handler = h }
func (t *FakeTimer) Rate() float64 { return t.TickRate }

// Fire raises one tick if the timer is listening.
func (t *FakeTimer) Fire() {
	if t.Listening && t.handler != nil {
		t.handler()
	}
}

// NewFakeBoard wires a board from fakes.
func NewFakeBoard(sampleRate, tickRate float64) (*hal.Board, *FakeADC, *FakeCompletion, *FakeComparator, *FakeTimer) {
	adc := &FakeADC{}
	completion := &FakeCompletion{}
	comp := &FakeComparator{}
	timer := &FakeTimer{TickRate: tickRate}
	return &hal.Board{
		ADC:        adc,
		DMA:        &FakeDMA{},
		Completion: completion,
		Buffer:     new(hal.SampleBuffer),
		SampleRate: sampleRate,
		Comparator: comp,
		Timer:      timer,
	}, adc, completion, comp, timer
}

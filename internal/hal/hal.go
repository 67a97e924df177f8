// SPDX-License-Identifier: MIT
/*
Package hal defines the hardware collaborators the estimators are built on.

Every implementation models one peripheral of the reference board:

- ADC + DMA: a one-shot buffered transfer that fills a sample block and
  raises a completion interrupt.
- Comparator: a binary output level.
- Timer: a fixed-rate tick interrupt that must be acknowledged.

Interrupts are delivered by the implementation calling a registered handler
from its own goroutine. Handlers never block for long and never call back
into the peripheral that raised them other than to acknowledge it.
*/
package hal

// TransformSize is the number of samples in one capture block. It matches
// the size of the spectral transform.
const TransformSize = 4096

// SampleBuffer holds one block of raw 12-bit ADC samples.
type SampleBuffer [TransformSize]uint16

// Handler is an interrupt service routine registered with a peripheral.
type Handler func()

// DMAChannel is the transfer channel lent to a capture session.
type DMAChannel interface {
	// Stop halts the channel. Stopping an idle channel is a no-op.
	Stop()
}

// Transfer is an in-flight one-shot block transfer.
type Transfer interface {
	// Wait blocks until the block is fully written and hands back the
	// buffer, the channel and the converter that were lent at start.
	Wait() (*SampleBuffer, DMAChannel, ADC)
}

// ADC is the analog capture hardware.
type ADC interface {
	// SetContinuous selects continuous conversion mode. It is set once at
	// construction.
	SetContinuous(enabled bool)
	// StartTransfer begins filling buf through ch. The transfer owns adc,
	// ch and buf until Wait returns them.
	StartTransfer(ch DMAChannel, buf *SampleBuffer) Transfer
}

// CompletionSource raises the capture-complete interrupt.
type CompletionSource interface {
	OnTransferComplete(h Handler)
}

// Comparator is a binary-output analog comparator.
type Comparator interface {
	Start()
	Stop()
	OutputLevel() bool
}

// Timer is the reference timer that paces edge counting.
type Timer interface {
	// Listen enables the periodic tick interrupt.
	Listen()
	// Unlisten disables the periodic tick interrupt.
	Unlisten()
	// ClearInterrupt acknowledges the pending tick.
	ClearInterrupt()
	// OnTick registers the tick interrupt handler.
	OnTick(h Handler)
	// Rate returns the tick rate in Hz.
	Rate() float64
}

// Board bundles the peripherals owned by the measurement system.
type Board struct {
	ADC        ADC
	DMA        DMAChannel
	Completion CompletionSource
	Buffer     *SampleBuffer
	SampleRate float64 // ADC sample rate (Hz).

	Comparator Comparator
	Timer      Timer

	// Close releases host resources behind the board, may be nil.
	Close func() error
}

// SPDX-License-Identifier: MIT
//
// Package transport publishes measurement frames to observers outside the
// device: logs, WebSocket clients and UDP listeners.
package transport

import (
	"errors"
	"math"
	"time"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one published measurement. Non-finite values are reported
// through the Valid flags since JSON cannot carry NaN.
type Frame struct {
	Sequence  uint32    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode"`
	Unit      string    `json:"unit"`

	Frequency float64 `json:"frequency_hz"`
	Speed     float64 `json:"speed"`
	Valid     bool    `json:"valid"`

	SpeedBCD uint8 `json:"speed_bcd"`
	BCDValid bool  `json:"speed_bcd_valid"`
}

// NewFrame builds a frame, clearing non-finite measurements.
func NewFrame(mode, unit string, frequency, speed float64) Frame {
	f := Frame{
		Timestamp: time.Now(),
		Mode:      mode,
		Unit:      unit,
		Valid:     finite(frequency) && finite(speed),
	}
	if f.Valid {
		f.Frequency = frequency
		f.Speed = speed
	}
	return f
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Multi fans every frame out to several transports.
type Multi []Transport

// Send forwards data to every transport and joins their errors.
func (m Multi) Send(data any) error {
	var errs []error
	for _, t := range m {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, t := range m {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)

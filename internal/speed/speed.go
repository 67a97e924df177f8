// SPDX-License-Identifier: MIT
//
// Package speed converts a Doppler beat frequency into a target velocity.
// The radar mixes the transmitted carrier with its own reflection, so the
// beat frequency is 2*v*f_t/c and the velocity follows as c*f/(2*f_t).
package speed

import (
	"fmt"
	"strings"
)

const (
	// C is the speed of light expressed in kilometres per hour.
	C = 1.08e9
	// CMPH is the speed of light expressed in miles per hour.
	CMPH = 6.71e8

	// DefaultTransmittedFrequency is the carrier of the reference radar
	// module (X band, Hz).
	DefaultTransmittedFrequency = 10.525e9
)

// Unit selects which speed conversion constant is applied.
type Unit int

const (
	Metric Unit = iota
	Imperial
)

// String returns the configuration name of the unit.
func (u Unit) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return "unknown"
	}
}

// Suffix returns the display suffix for speeds in this unit.
func (u Unit) Suffix() string {
	if u == Imperial {
		return "mph"
	}
	return "km/h"
}

// Convert maps a detected frequency to a speed using the unit's constant.
func (u Unit) Convert(detected, transmitted float64) float64 {
	if u == Imperial {
		return CalculateSpeedMPH(detected, transmitted)
	}
	return CalculateSpeed(detected, transmitted)
}

// ParseUnit converts a string name (case-insensitive) to a Unit, returns
// Metric and an error if the name is unknown.
func ParseUnit(name string) (Unit, error) {
	switch strings.ToLower(name) {
	case "metric", "kmh", "km/h":
		return Metric, nil
	case "imperial", "mph":
		return Imperial, nil
	default:
		return Metric, fmt.Errorf("unknown speed unit: '%s'", name)
	}
}

// CalculateSpeed returns the speed in km/h for a detected beat frequency and
// the transmitted carrier frequency, both in Hz.
func CalculateSpeed(detected, transmitted float64) float64 {
	return C * detected / (2 * transmitted)
}

// CalculateSpeedMPH returns the speed in mph for a detected beat frequency
// and the transmitted carrier frequency, both in Hz.
func CalculateSpeedMPH(detected, transmitted float64) float64 {
	return CMPH * detected / (2 * transmitted)
}

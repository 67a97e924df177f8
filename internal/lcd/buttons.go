// SPDX-License-Identifier: MIT
package lcd

import (
	"errors"
	"fmt"
)

// ErrInvalidReading is returned for analog readings above the 12-bit range.
var ErrInvalidReading = errors.New("lcd: invalid button reading")

// Button is one of the keys of the LCD keypad shield. All keys share one
// resistor ladder, so the pressed key is recovered from a single ADC value.
type Button int

const (
	Right Button = iota
	Up
	Down
	Left
	Select
)

// Inclusive upper bounds of each key's reading range.
const (
	rightMax  = 500
	upMax     = 1000
	downMax   = 2500
	leftMax   = 4000
	selectMax = 4096

	// IdleReading is what the ladder reads with no key held.
	IdleReading = selectMax
)

func (b Button) String() string {
	switch b {
	case Right:
		return "RIGHT"
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	case Left:
		return "LEFT"
	case Select:
		return "SELECT"
	default:
		return "UNKNOWN"
	}
}

// ParseButton maps an analog reading to a button.
func ParseButton(reading uint16) (Button, error) {
	switch {
	case reading <= rightMax:
		return Right, nil
	case reading <= upMax:
		return Up, nil
	case reading <= downMax:
		return Down, nil
	case reading <= leftMax:
		return Left, nil
	case reading <= selectMax:
		return Select, nil
	default:
		return Select, fmt.Errorf("%w: %d", ErrInvalidReading, reading)
	}
}

// ButtonReader samples the keypad resistor ladder.
type ButtonReader interface {
	Read() (uint16, error)
}

// IdleButtons is a keypad nobody touches.
type IdleButtons struct{}

func (IdleButtons) Read() (uint16, error) {
	return IdleReading, nil
}

// Reading returns a ladder value in the middle of b's range, as a real key
// press would produce.
func Reading(b Button) uint16 {
	switch b {
	case Right:
		return rightMax / 2
	case Up:
		return (rightMax + upMax) / 2
	case Down:
		return (upMax + downMax) / 2
	case Left:
		return (downMax + leftMax) / 2
	default:
		return (leftMax + selectMax) / 2
	}
}

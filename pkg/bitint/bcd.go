// SPDX-License-Identifier: MIT
package bitint

import "errors"

// MaxBCD is the largest value a single packed decimal byte can hold.
const MaxBCD = 99

// ErrOutOfRange is returned by BinToBCD for values that need more than two
// decimal digits.
var ErrOutOfRange = errors.New("bcd: value out of range (0-99)")

// BinToBCD converts a two digit number into packed decimal: the high nibble
// holds the tens digit and the low nibble the ones digit.
//
// The conversion uses the double dabble technique: the input is shifted out
// MSB first into the result, and before every shift any nibble of the
// result that is 5 or greater gets 3 added so the shift carries it into the
// next decimal digit.
//
//	https://en.wikipedia.org/wiki/Double_dabble
//
// Examples:
//
//	Input  Output
//	0      0x00
//	9      0x09
//	10     0x10
//	99     0x99
//	100    ErrOutOfRange
func BinToBCD(n uint8) (uint8, error) {
	if n > MaxBCD {
		return 0, ErrOutOfRange
	}

	var result uint16
	for i := 0; i < 8; i++ {
		// Adjust each BCD nibble before it is doubled.
		if result&0x0f >= 0x05 {
			result += 0x03
		}
		if result&0xf0 >= 0x50 {
			result += 0x30
		}

		result = result<<1 | uint16(n>>7)
		n <<= 1
	}

	return uint8(result), nil
}

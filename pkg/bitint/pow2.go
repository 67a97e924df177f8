/*
Package bitint provides the small bit manipulation helpers used by the
measurement path: power-of-2 checks for the spectral transform size and
packed decimal (BCD) encoding for two-digit readouts.

Design Principles:
- Zero Allocations: All operations use stack memory only
- Predictable Performance: O(1) constant time operations
- Real-Time Safe: No locks, syscalls, or blocking operations

Usage:

	// Verify the FFT transform size is valid
	isValid := bitint.IsPowerOfTwo(fft.TransformSize)

	// Encode a speed for a two-digit readout
	packed, err := bitint.BinToBCD(42) // Returns 0x42
*/
package bitint

// IsPowerOfTwo reports whether n is a positive power of 2: a single set
// bit, cleared by n&(n-1).
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// SPDX-License-Identifier: MIT
package audio

import "doppler/internal/hal"

// Peak returns the largest deviation of a block from mid-rail.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless absolute value and maximum
func Peak(buf *hal.SampleBuffer) int32 {
	var maxAmplitude int32
	for _, code := range buf {
		sample := int32(code) - midRail
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += diff &^ (diff >> 31)
	}
	return maxAmplitude
}

// Squelch flattens a block to mid-rail when its peak stays at or below
// threshold, so receiver hiss reads as a zero frequency instead of a random
// bin. A threshold of zero disables the gate.
func Squelch(buf *hal.SampleBuffer, threshold int32) bool {
	if threshold <= 0 || Peak(buf) > threshold {
		return false
	}
	for i := range buf {
		buf[i] = midRail
	}
	return true
}

// SPDX-License-Identifier: MIT
package bitint

import (
	"errors"
	"fmt"
	"testing"
)

func TestBinToBCD(t *testing.T) {
	tests := []struct {
		n        uint8
		expected uint8
	}{
		{0, 0x00},
		{5, 0x05},
		{9, 0x09},
		{10, 0x10},
		{42, 0x42},
		{55, 0x55},
		{90, 0x90},
		{99, 0x99},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%#02x", tt.n, tt.expected), func(t *testing.T) {
			result, err := BinToBCD(tt.n)
			if err != nil {
				t.Fatalf("BinToBCD(%d) unexpected error: %v", tt.n, err)
			}
			if result != tt.expected {
				t.Errorf("BinToBCD(%d) = %#02x, expected %#02x", tt.n, result, tt.expected)
			}
		})
	}
}

func TestBinToBCDAllDigits(t *testing.T) {
	for n := uint8(0); n <= MaxBCD; n++ {
		result, err := BinToBCD(n)
		if err != nil {
			t.Fatalf("BinToBCD(%d) unexpected error: %v", n, err)
		}
		tens, ones := result>>4, result&0x0f
		if tens*10+ones != n {
			t.Errorf("BinToBCD(%d) = %#02x decodes to %d", n, result, tens*10+ones)
		}
	}
}

func TestBinToBCDOutOfRange(t *testing.T) {
	for _, n := range []uint8{100, 128, 200, 255} {
		if _, err := BinToBCD(n); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("BinToBCD(%d) error = %v, expected ErrOutOfRange", n, err)
		}
	}
}

func BenchmarkBinToBCD(b *testing.B) {
	var i uint8
	b.ReportAllocs()
	for b.Loop() {
		_, _ = BinToBCD(i % 100)
		i++
	}
}

// SPDX-License-Identifier: MIT
/*
Package lcd holds the character display and keypad collaborators: the
HD44780 style 16x2 display addressed by DDRAM offset, the resistor ladder
keypad, and the fixed-width row formatting shared by every display.
*/
package lcd

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

const (
	// RowWidth is the number of characters per display row.
	RowWidth = 16
	// Row1Offset and Row2Offset are the DDRAM addresses of the two rows.
	Row1Offset = 0x00
	Row2Offset = 0x40
)

// Display is a character display.
type Display interface {
	SetCursorPos(offset uint8) error
	WriteString(s string) error
}

// FormatFrequency renders a frequency row, NaN shows as dashes.
func FormatFrequency(hz float64) string {
	if math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fitRow("F:      --- Hz")
	}
	return fitRow(fmt.Sprintf("F:%9.1f Hz", hz))
}

// FormatSpeed renders a speed row with the unit suffix.
func FormatSpeed(v float64, suffix string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fitRow("S:      --- " + suffix)
	}
	return fitRow(fmt.Sprintf("S:%9.1f %s", v, suffix))
}

// fitRow pads or clips s to exactly RowWidth characters.
func fitRow(s string) string {
	if len(s) > RowWidth {
		return s[:RowWidth]
	}
	return s + strings.Repeat(" ", RowWidth-len(s))
}

// WriteRows writes both rows to d.
func WriteRows(d Display, row1, row2 string) error {
	if err := d.SetCursorPos(Row1Offset); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	if err := d.WriteString(fitRow(row1)); err != nil {
		return fmt.Errorf("failed to write row 1: %w", err)
	}
	if err := d.SetCursorPos(Row2Offset); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	if err := d.WriteString(fitRow(row2)); err != nil {
		return fmt.Errorf("failed to write row 2: %w", err)
	}
	return nil
}

// Screen emulates the display memory of a 16x2 module. It is safe for
// concurrent use so a renderer can read it while the loop writes.
type Screen struct {
	mu   sync.Mutex
	rows [2][RowWidth]byte
	row  int
	col  int
}

// NewScreen returns a blank screen.
func NewScreen() *Screen {
	s := &Screen{}
	for r := range s.rows {
		for c := range s.rows[r] {
			s.rows[r][c] = ' '
		}
	}
	return s
}

func (s *Screen) SetCursorPos(offset uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.row, s.col = 0, int(offset)
	if offset >= Row2Offset {
		s.row, s.col = 1, int(offset-Row2Offset)
	}
	return nil
}

// WriteString writes at the cursor; characters past the row end are
// dropped.
func (s *Screen) WriteString(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < len(text) && s.col < RowWidth; i++ {
		s.rows[s.row][s.col] = text[i]
		s.col++
	}
	return nil
}

// Rows returns the current contents of both rows.
func (s *Screen) Rows() [2]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return [2]string{string(s.rows[0][:]), string(s.rows[1][:])}
}

// Row returns the row the cursor is on.
func (s *Screen) Row() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.row
}

// SPDX-License-Identifier: MIT
package lcd

import (
	"fmt"
	"io"
)

// Console mirrors the display onto a writer, one line per written row.
type Console struct {
	screen *Screen
	out    io.Writer
}

// NewConsole creates a console display writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{screen: NewScreen(), out: out}
}

func (c *Console) SetCursorPos(offset uint8) error {
	return c.screen.SetCursorPos(offset)
}

func (c *Console) WriteString(s string) error {
	if err := c.screen.WriteString(s); err != nil {
		return err
	}
	row := c.screen.Row()
	_, err := fmt.Fprintf(c.out, "[%d] %s\n", row+1, c.screen.Rows()[row])
	return err
}

var _ Display = (*Console)(nil)
var _ Display = (*Screen)(nil)

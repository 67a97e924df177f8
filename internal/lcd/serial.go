// SPDX-License-Identifier: MIT
package lcd

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory rate of common serial LCD backpacks.
	DefaultBaudRate = 9600

	commandPrefix = 0xFE // Next byte is an HD44780 instruction.
	setDDRAMAddr  = 0x80 // Instruction: set DDRAM address (cursor).
)

// Serial drives an HD44780 display through a UART backpack. Text bytes are
// shown as-is, instructions are escaped with a 0xFE prefix.
type Serial struct {
	mu   sync.Mutex
	conn io.WriteCloser
}

// OpenSerial opens the backpack on the named port.
func OpenSerial(port string, baudRate int) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	conn, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return NewSerial(conn), nil
}

// NewSerial wraps an already open connection.
func NewSerial(conn io.WriteCloser) *Serial {
	return &Serial{conn: conn}
}

func (s *Serial) SetCursorPos(offset uint8) error {
	return s.write([]byte{commandPrefix, setDDRAMAddr | offset&0x7f})
}

func (s *Serial) WriteString(text string) error {
	return s.write([]byte(text))
}

func (s *Serial) write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("serial display is closed")
	}
	if _, err := s.conn.Write(b); err != nil {
		return fmt.Errorf("failed to write to serial display: %w", err)
	}
	return nil
}

// Close closes the underlying port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

var _ Display = (*Serial)(nil)

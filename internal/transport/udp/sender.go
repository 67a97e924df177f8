// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "doppler/internal/log"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("udp: sender is closed")

// UDPSender writes datagrams to one connected peer and counts what it sent.
type UDPSender struct {
	mu   sync.RWMutex // Write lock only to swap conn out on Close.
	conn *net.UDPConn
	peer string

	packets atomic.Uint64
	bytes   atomic.Uint64
}

// NewUDPSender dials targetAddress ("host:port", e.g. "127.0.0.1:9090").
// No local bind is needed for sending.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial '%s': %w", targetAddress, err)
	}

	s := &UDPSender{conn: conn, peer: conn.RemoteAddr().String()}
	applog.Infof("UDP: Sending to %s", s.peer)
	return s, nil
}

// Send transmits data as one datagram. Concurrent sends do not block each
// other.
func (s *UDPSender) Send(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return ErrClosed
	}

	n, err := s.conn.Write(data)
	if err != nil {
		return fmt.Errorf("udp: send to %s: %w", s.peer, err)
	}
	s.packets.Add(1)
	s.bytes.Add(uint64(n))
	return nil
}

// Stats returns the datagrams and bytes sent so far.
func (s *UDPSender) Stats() (packets, bytes uint64) {
	return s.packets.Load(), s.bytes.Load()
}

// Close releases the connection. Closing twice is a no-op.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	packets, bytes := s.Stats()
	applog.Infof("UDP: Closing %s after %d packets (%d bytes)", s.peer, packets, bytes)
	if err := conn.Close(); err != nil {
		return fmt.Errorf("udp: close %s: %w", s.peer, err)
	}
	return nil
}

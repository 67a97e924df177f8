// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	applog "doppler/internal/log"
	"doppler/internal/transport"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Flags             | uint8          | 1            | See flag bits below     |
| Speed BCD         | uint8          | 1            | Packed two-digit speed  |
| Frequency         | float32        | 4            | Hz                      |
| Speed             | float32        | 4            | km/h or mph             |
+-----------------------------------------------------------------------------+
*/

// PacketSize is the size in bytes of one measurement packet.
const PacketSize = 4 + 8 + 1 + 1 + 4 + 4

// Flag bits of the packet Flags byte.
const (
	FlagValid    = 1 << 0 // Frequency and speed hold a measurement.
	FlagBCDValid = 1 << 1 // Speed BCD holds a readout.
	FlagSpectral = 1 << 2 // Measured by the spectral estimator.
	FlagImperial = 1 << 3 // Speed is in mph.
)

// Publisher packs frames into the binary packet format and sends them
// with a UDPSender.
type Publisher struct {
	sender       *UDPSender
	mu           sync.Mutex
	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewPublisher creates a publisher over sender.
func NewPublisher(sender *UDPSender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	return &Publisher{
		sender:       sender,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Send packs and transmits a transport.Frame; other values are rejected.
func (p *Publisher) Send(data any) error {
	frame, ok := data.(transport.Frame)
	if !ok {
		return fmt.Errorf("UDPPublisher: unsupported payload %T", data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.sequenceNum++
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, frame); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return err
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return nil
}

// Close closes the underlying sender.
func (p *Publisher) Close() error {
	return p.sender.Close()
}

// EncodePacket resets buf and writes frame into it with the given sequence
// number.
func EncodePacket(buf *bytes.Buffer, seq uint32, frame transport.Frame) error {
	var flags uint8
	if frame.Valid {
		flags |= FlagValid
	}
	if frame.BCDValid {
		flags |= FlagBCDValid
	}
	if frame.Mode == "spectral" {
		flags |= FlagSpectral
	}
	if frame.Unit == "imperial" {
		flags |= FlagImperial
	}

	buf.Reset()
	fields := []any{
		seq,
		frame.Timestamp.UnixNano(),
		flags,
		frame.SpeedBCD,
		float32(frame.Frequency),
		float32(frame.Speed),
	}
	for _, f := range fields {
		if err := binary.Write(buf, binary.BigEndian, f); err != nil {
			return err
		}
	}
	return nil
}

var _ transport.Transport = (*Publisher)(nil)

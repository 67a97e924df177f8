// SPDX-License-Identifier: MIT
package transport

import (
	applog "doppler/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	if f, ok := data.(Frame); ok {
		applog.Debugf("Transport: #%d %s %.1f Hz %.1f %s (valid=%t)",
			f.Sequence, f.Mode, f.Frequency, f.Speed, f.Unit, f.Valid)
		return nil
	}
	applog.Debugf("Transport: Received (%T): %+v", data, data)
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

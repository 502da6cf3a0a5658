package transport

import (
	"context"
	"time"

	"go.bug.st/serial"
)

// SerialDialer dials a modem attached to a local serial port, via
// go.bug.st/serial. It is the production Dialer; tests use a fake Transport
// and never need a Dialer at all.
type SerialDialer struct {
	// PortName is the OS device path, e.g. "/dev/ttyUSB0" or "COM3".
	PortName string
	// BaudRate is the line speed. Defaults to 115200 if zero.
	BaudRate int
	// ReadTimeout bounds how long a single Read on the resulting Transport
	// may block before returning. Defaults to 500ms if zero. It does not
	// govern command timeouts, which the arbiter enforces separately.
	ReadTimeout time.Duration
}

// Dial opens the configured serial port. go.bug.st/serial has no
// context-aware open, so ctx is checked only once the port is open: if ctx
// is already done by then, the port is closed again and ctx.Err() is
// returned. Callers needing a dial deadline should wrap Dial in their own
// select.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	baud := d.BaudRate
	if baud == 0 {
		baud = 115200
	}
	readTimeout := d.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 500 * time.Millisecond
	}

	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, &IoOpenError{Port: d.PortName, Err: err}
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, &IoOpenError{Port: d.PortName, Err: err}
	}

	select {
	case <-ctx.Done():
		port.Close()
		return nil, ctx.Err()
	default:
	}

	return port, nil
}

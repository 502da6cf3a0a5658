// Package transport implements the AT transport layer (C2) and the event
// surface (C6) of the modem core: a byte-stream Transport abstraction, a
// single-in-flight command arbiter built around it, and a channel of
// observability events describing everything the arbiter does.
package transport

import (
	"context"
	"io"
)

// Transport is an established, bidirectional byte stream to a modem. A
// Transport is assumed to already be connected; it provides only the raw I/O
// primitives the arbiter needs to write AT commands and read responses.
// Serial ports, TCP connections to an emulator, and in-memory fakes used in
// tests all implement it identically.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a modem. It abstracts how the connection is
// created — serial port, TCP, or test double — and is only needed during
// Open; once a Transport is obtained the Dialer is no longer consulted.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and must
	// respect ctx's cancellation and deadline.
	Dial(ctx context.Context) (Transport, error)
}

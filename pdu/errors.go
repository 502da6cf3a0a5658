package pdu

import "fmt"

// DecodeError wraps a codec failure while parsing a hex PDU, preserving the
// raw input that failed so callers can log or replay it.
type DecodeError struct {
	Hex string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode PDU %q: %v", e.Hex, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

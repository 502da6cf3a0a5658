package session

import "fmt"

// InitFailure is returned by Open when a step of the six-command
// initialization sequence (spec.md §4.4) completes without OK.
type InitFailure struct {
	Command  string
	Response string
}

func (e *InitFailure) Error() string {
	return fmt.Sprintf("modem init: command %q: %s", e.Command, e.Response)
}

// ModemError reports a well-formed transport response in which OK was
// required but not seen — the modem itself rejected the command. The
// verbatim response is preserved, including +CME/+CMS ERROR: detail.
type ModemError struct {
	Command  string
	Response string
}

func (e *ModemError) Error() string {
	return fmt.Sprintf("modem error on %q: %s", e.Command, e.Response)
}

// ProtocolError reports a response whose shape did not match the expected
// grammar for its command family (missing +CMGR: line, a non-hex PDU
// body, a +CPMS: line with fewer than nine fields, and so on).
type ProtocolError struct {
	Command string
	Detail  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %q: %s", e.Command, e.Detail)
}

// SendFailure reports that send_message/write_submit_message/
// send_stored_message aborted partway through a multi-fragment operation.
// Sent records how many fragments completed successfully before the
// failure; there is no rollback of those fragments (spec.md §5/§7).
type SendFailure struct {
	Response string
	Sent     int
}

func (e *SendFailure) Error() string {
	return fmt.Sprintf("send failed after %d fragment(s): %s", e.Sent, e.Response)
}

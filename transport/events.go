package transport

import "time"

// EventKind identifies what happened inside the arbiter. Events are purely
// observational: nothing downstream of the event channel can influence
// command execution, so a slow or absent consumer can never stall the
// arbiter (see Event, below).
type EventKind int

const (
	// EventPortOpen fires once Open has dialed the transport successfully.
	EventPortOpen EventKind = iota
	// EventPortClose fires when Close tears the transport down. A read
	// error stops the read loop without raising it; it fires only once
	// Close is called.
	EventPortClose
	// EventRawBytes fires for every chunk read off the transport, before
	// any framing or classification. Data holds the raw bytes.
	EventRawBytes
	// EventATCommand fires when a command is written to the transport.
	// Data holds the command text actually written (without the trailing
	// CR).
	EventATCommand
	// EventATResponse fires when a command completes, successfully or
	// not. Data holds the full joined response body.
	EventATResponse
	// EventATNotification fires for every unsolicited notification line
	// seen between commands or interleaved with one. Data holds the line.
	EventATNotification
	// EventSMSMessage fires once a reassembled SMS message is available,
	// whether from a live +CMTI receive or a list-mode merge the caller
	// chose to publish. It is never raised by the arbiter itself; session
	// raises it through Publish once a message is fully reassembled.
	// Payload holds the message (a *reassemble.Message, kept as `any` here
	// so this package does not depend on reassemble).
	EventSMSMessage
)

func (k EventKind) String() string {
	switch k {
	case EventPortOpen:
		return "port-open"
	case EventPortClose:
		return "port-close"
	case EventRawBytes:
		return "raw-bytes"
	case EventATCommand:
		return "at-command"
	case EventATResponse:
		return "at-response"
	case EventATNotification:
		return "at-notification"
	case EventSMSMessage:
		return "sms-message"
	default:
		return "unknown"
	}
}

// Event is a single observability record emitted by the arbiter. It carries
// no control semantics — it exists purely for logging, metrics, and tests
// that want to assert on arbiter behavior without reaching into its
// internals.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Data    string
	Err     error
	Payload any
}

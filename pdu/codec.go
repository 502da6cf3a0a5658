// Package pdu defines the external PDU codec contract (C7): decoding a
// hex-encoded SMS PDU into a typed record, and building the one or more
// hex PDUs needed to submit an outbound message. The core session package
// depends only on this interface; pdu/warthog618 provides the concrete
// implementation used in production.
package pdu

import "time"

// Type distinguishes an inbound (network-originated) PDU from an outbound
// (mobile-originated) one.
type Type string

const (
	SMSDeliver Type = "SMS-DELIVER"
	SMSSubmit  Type = "SMS-SUBMIT"
)

// Concat carries the concatenated-SMS header of a single fragment, as
// decoded from a PDU's user-data header. Sequence is 1-based.
type Concat struct {
	Reference int
	Sequence  int
	Total     int
}

// Message is the result of parsing one hex PDU.
type Message struct {
	Type         Type
	Text         string
	Origination  string // set iff Type == SMSDeliver
	Destination  string // set iff Type == SMSSubmit
	Timestamp    time.Time
	HasTimestamp bool
	Concat       *Concat
}

// SubmitPDU is one hex-encoded TPDU ready to be written after a CMGS/CMGW
// prompt, along with the octet length to announce in the AT command.
type SubmitPDU struct {
	Hex    string
	Length int
}

// Codec parses inbound PDUs and builds outbound ones. Implementations must
// be safe for concurrent use; the session package calls them without
// additional locking.
type Codec interface {
	// Parse decodes a hex-encoded PDU as received from the modem (CMGL/CMGR
	// body). It returns a DecodeError if hex is malformed or too short to
	// contain a valid TPDU.
	Parse(hex string) (Message, error)

	// GenerateSubmit builds the ordered sequence of hex PDUs needed to
	// submit text to dest, splitting into multiple concatenated fragments
	// if text does not fit in a single PDU's user data.
	GenerateSubmit(dest, text string) ([]SubmitPDU, error)
}

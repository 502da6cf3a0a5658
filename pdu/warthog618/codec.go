// Package warthog618 implements the pdu.Codec interface using
// github.com/warthog618/sms and its encoding/tpdu sub-package: the only
// concrete PDU codec this repository ships.
package warthog618

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/warthog618/sms"
	"github.com/warthog618/sms/encoding/tpdu"

	"i4.energy/across/smscore/pdu"
)

// Codec is a pdu.Codec backed by warthog618/sms. It holds no state and is
// safe for concurrent use.
type Codec struct{}

// New returns a ready-to-use Codec.
func New() *Codec {
	return &Codec{}
}

// Parse implements pdu.Codec.
func (c *Codec) Parse(hexStr string) (pdu.Message, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(hexStr))
	if err != nil {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: err}
	}
	if len(raw) == 0 {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: errors.New("empty PDU")}
	}

	smscLen := int(raw[0])
	if len(raw) < smscLen+1 {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: errors.New("SMSC length exceeds PDU")}
	}
	tp := raw[smscLen+1:]

	msg, err := sms.Unmarshal(tp)
	if err != nil {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: err}
	}

	out := pdu.Message{}
	switch msg.SmsType() {
	case tpdu.SmsDeliver:
		out.Type = pdu.SMSDeliver
		out.Origination = msg.OA.Number()
		out.Timestamp = msg.SCTS.Time
		out.HasTimestamp = true
	case tpdu.SmsSubmit:
		out.Type = pdu.SMSSubmit
		out.Destination = msg.DA.Number()
	default:
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: fmt.Errorf("unsupported PDU type %v", msg.SmsType())}
	}

	alphabet, err := msg.DCS.Alphabet()
	if err != nil {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: err}
	}
	text, err := tpdu.DecodeUserData(msg.UD, msg.UDH, alphabet)
	if err != nil {
		return pdu.Message{}, &pdu.DecodeError{Hex: hexStr, Err: err}
	}
	out.Text = string(text)
	out.Concat = concatHeader(msg.UDH)

	return out, nil
}

// GenerateSubmit implements pdu.Codec. Each returned fragment is a complete
// TPDU prefixed with a single SMSC-length octet of 0x00 ("use the modem's
// configured default SMSC"), matching what AT+CMGS/AT+CMGW expect on the
// wire; Length is the TPDU octet count, excluding that prefix octet, which
// is what the AT command's length argument names.
func (c *Codec) GenerateSubmit(dest, text string) ([]pdu.SubmitPDU, error) {
	tpdus, err := sms.Encode([]byte(text), sms.To(dest), sms.WithAllCharsets)
	if err != nil {
		return nil, &pdu.DecodeError{Hex: text, Err: err}
	}

	out := make([]pdu.SubmitPDU, 0, len(tpdus))
	for i := range tpdus {
		b, err := tpdus[i].MarshalBinary()
		if err != nil {
			return nil, &pdu.DecodeError{Err: fmt.Errorf("marshal fragment %d: %w", i+1, err)}
		}
		out = append(out, pdu.SubmitPDU{
			Hex:    strings.ToUpper("00" + hex.EncodeToString(b)),
			Length: len(b),
		})
	}
	return out, nil
}

// concatHeader extracts the concatenated-SMS reference/sequence/total from
// a TPDU's user-data header, if present, supporting both the 8-bit and
// 16-bit reference information elements (GSM 03.40 §9.2.3.24.1/.24.8).
func concatHeader(udh tpdu.UserDataHeader) *pdu.Concat {
	for _, ie := range udh {
		switch ie.ID {
		case 0x00:
			d := ie.Data
			if len(d) < 3 {
				continue
			}
			return &pdu.Concat{Reference: int(d[0]), Total: int(d[1]), Sequence: int(d[2])}
		case 0x08:
			d := ie.Data
			if len(d) < 4 {
				continue
			}
			ref := int(d[0])<<8 | int(d[1])
			return &pdu.Concat{Reference: ref, Total: int(d[2]), Sequence: int(d[3])}
		}
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"i4.energy/across/smscore/reassemble"
	"i4.energy/across/smscore/session/parser"
)

// ListMessages issues AT+CMGL=<stat> and decodes every returned PDU,
// merging concatenated fragments when concat mode is enabled (the
// default). stat follows the wire values of spec.md §6 (4 == "ALL" in PDU
// mode).
func (s *Session) ListMessages(ctx context.Context, stat int) ([]reassemble.Message, error) {
	cmd := fmt.Sprintf("AT+CMGL=%d", stat)
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return nil, s.execError(cmd, resp, err)
	}

	lines := strings.Split(resp, "\n")
	messages := make([]reassemble.Message, 0)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		header, ok := parser.ParseCMGLHeader(line)
		if !ok {
			continue
		}
		i++
		if i >= len(lines) {
			return nil, &ProtocolError{Command: cmd, Detail: "+CMGL header with no PDU body"}
		}
		body := strings.TrimSpace(lines[i])
		if !isHexPDU(body) {
			return nil, &ProtocolError{Command: cmd, Detail: fmt.Sprintf("+CMGL index %d: non-hex PDU body", header.Index)}
		}
		decoded, err := s.codec.Parse(body)
		if err != nil {
			return nil, &ProtocolError{Command: cmd, Detail: fmt.Sprintf("+CMGL index %d: %v", header.Index, err)}
		}
		messages = append(messages, toReassembleMessage(header.Index, header.Stat, decoded))
	}

	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Index < messages[j].Index })

	if s.concatMode {
		return reassemble.List(messages), nil
	}
	return messages, nil
}

// ReadMessage issues AT+CMGR=<index>. If the modem's response does not
// carry a recognizable +CMGR header and hex PDU body, it returns
// (nil, nil) rather than an error — spec.md §4.4 treats that shape as "no
// such message", not a protocol failure. If the decoded PDU is one
// fragment of a concatenated message and concat mode is enabled, it
// re-lists all messages to resolve the merged text.
func (s *Session) ReadMessage(ctx context.Context, index int) (*reassemble.Message, error) {
	m, err := s.readRaw(ctx, index)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}
	if m.Concat != nil && s.concatMode {
		return s.resolveConcat(ctx, *m)
	}
	return m, nil
}

// readRaw reads and decodes a single message by index, with no concat
// resolution. It returns (nil, nil) when the response shape does not
// match +CMGR: <stat>,<addr>,<len> followed by a hex PDU line — used both
// by ReadMessage and by the live +CMTI watcher.
func (s *Session) readRaw(ctx context.Context, index int) (*reassemble.Message, error) {
	cmd := fmt.Sprintf("AT+CMGR=%d", index)
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return nil, s.execError(cmd, resp, err)
	}

	lines := strings.Split(resp, "\n")
	var header parser.CMGRHeader
	var headerOK bool
	var body string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !headerOK {
			header, headerOK = parser.ParseCMGRHeader(line)
			if !headerOK {
				return nil, nil
			}
			continue
		}
		body = line
		break
	}
	if !headerOK || !isHexPDU(body) {
		return nil, nil
	}

	decoded, err := s.codec.Parse(body)
	if err != nil {
		return nil, &ProtocolError{Command: cmd, Detail: err.Error()}
	}
	m := toReassembleMessage(index, header.Stat, decoded)
	return &m, nil
}

// resolveConcat re-lists all stored messages of fragment's message family
// and returns the merged record that contains fragment's index.
func (s *Session) resolveConcat(ctx context.Context, fragment reassemble.Message) (*reassemble.Message, error) {
	all, err := s.ListMessages(ctx, 4)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Concat == nil {
			continue
		}
		for _, idx := range all[i].Concat.Indexes {
			if idx == fragment.Index {
				return &all[i], nil
			}
		}
	}
	// Nothing else merged in yet (e.g. a concat bucket of one fragment that
	// hasn't flushed); fall back to the single fragment as read.
	return &fragment, nil
}

// DeleteMessage reads a message by index, then deletes every storage slot
// it occupies: just the one index for an unfragmented message, or every
// fragment's index for a merged concatenated message. It returns the
// message that was deleted, or (nil, nil) if index did not exist. In a
// merged message an index of 0 marks a missing fragment and is skipped, so
// a fragment actually stored at index 0 is not deleted.
func (s *Session) DeleteMessage(ctx context.Context, index int) (*reassemble.Message, error) {
	m, err := s.ReadMessage(ctx, index)
	if err != nil || m == nil {
		return m, err
	}
	indexes := []int{index}
	if m.Concat != nil && len(m.Concat.Indexes) > 0 {
		indexes = m.Concat.Indexes
	}
	for _, idx := range indexes {
		if idx == 0 && m.Concat != nil {
			continue
		}
		cmd := fmt.Sprintf("AT+CMGD=%d", idx)
		resp, err := s.arb.Exec(ctx, cmd)
		if err != nil {
			return m, s.execError(cmd, resp, err)
		}
	}
	return m, nil
}

// DeleteAllMessages issues AT+CMGD=0,4, deleting every stored message
// regardless of status.
func (s *Session) DeleteAllMessages(ctx context.Context) error {
	const cmd = "AT+CMGD=0,4"
	resp, err := s.arb.Exec(ctx, cmd)
	if err != nil {
		return s.execError(cmd, resp, err)
	}
	return nil
}

// SendMessage sends text to dest, splitting into concatenated fragments as
// needed, using the two-phase CMGS protocol: announce the PDU octet
// length, wait for the "> " prompt, write the hex body terminated with
// Ctrl-Z. It returns the message reference the modem assigned to each
// fragment, in order. If any fragment fails, it stops immediately and
// returns a *SendFailure reporting how many fragments completed; there is
// no rollback of those already sent (spec.md §5/§7).
func (s *Session) SendMessage(ctx context.Context, dest, text string) ([]int, error) {
	fragments, err := s.codec.GenerateSubmit(dest, text)
	if err != nil {
		return nil, fmt.Errorf("generate submit PDUs: %w", err)
	}
	refs := make([]int, 0, len(fragments))
	for i, frag := range fragments {
		cmd := fmt.Sprintf("AT+CMGS=%d", frag.Length)
		if _, err := s.arb.Exec(ctx, cmd); err != nil {
			return refs, &SendFailure{Response: err.Error(), Sent: i}
		}
		resp, err := s.arb.WritePDUBody(ctx, frag.Hex)
		if err != nil {
			return refs, &SendFailure{Response: responseText(resp, err), Sent: i}
		}
		ref, ok := parser.ParseCMGSResult(firstMatchingLine(resp, "+CMGS"))
		if !ok {
			return refs, &SendFailure{Response: resp, Sent: i}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// WriteSubmitMessage writes text to storage (AT+CMGW, status 2 — "stored,
// not yet sent") instead of sending it immediately, returning the storage
// index of every fragment written, in order.
func (s *Session) WriteSubmitMessage(ctx context.Context, dest, text string) ([]int, error) {
	fragments, err := s.codec.GenerateSubmit(dest, text)
	if err != nil {
		return nil, fmt.Errorf("generate submit PDUs: %w", err)
	}
	indexes := make([]int, 0, len(fragments))
	for i, frag := range fragments {
		cmd := fmt.Sprintf("AT+CMGW=%d,2", frag.Length)
		if _, err := s.arb.Exec(ctx, cmd); err != nil {
			return indexes, &SendFailure{Response: err.Error(), Sent: i}
		}
		resp, err := s.arb.WritePDUBody(ctx, frag.Hex)
		if err != nil {
			return indexes, &SendFailure{Response: responseText(resp, err), Sent: i}
		}
		idx, ok := parser.ParseCMGWResult(firstMatchingLine(resp, "+CMGW"))
		if !ok {
			return indexes, &ProtocolError{Command: cmd, Detail: "missing +CMGW: result line"}
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// SendStoredMessage sends every fragment of a previously written message
// (by its first fragment's storage index) via AT+CMSS, stopping at the
// first failure. Like SendMessage, there is no rollback of fragments
// already sent.
func (s *Session) SendStoredMessage(ctx context.Context, index int) error {
	m, err := s.ReadMessage(ctx, index)
	if err != nil {
		return err
	}
	if m == nil {
		return &ProtocolError{Command: fmt.Sprintf("AT+CMSS=%d", index), Detail: "no such stored message"}
	}
	indexes := []int{index}
	if m.Concat != nil && len(m.Concat.Indexes) > 0 {
		indexes = m.Concat.Indexes
	}
	for i, idx := range indexes {
		cmd := fmt.Sprintf("AT+CMSS=%d", idx)
		resp, err := s.arb.Exec(ctx, cmd)
		if err != nil {
			return &SendFailure{Response: responseText(resp, err), Sent: i}
		}
	}
	return nil
}

// execError wraps a failed Exec call as either a *ModemError (the modem
// responded but rejected the command) or the raw transport error
// (timeout, write failure, closed arbiter).
func (s *Session) execError(cmd, resp string, err error) error {
	if resp != "" {
		return &ModemError{Command: cmd, Response: resp}
	}
	return fmt.Errorf("%s: %w", cmd, err)
}

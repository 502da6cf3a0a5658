package at

import "strings"

// Normalize rewrites every CRLF and lone CR in chunk to LF. It is the first
// thing done to any byte chunk read from the transport (spec.md §4.1, P2):
// everything downstream — terminator matching, notification detection, line
// splitting for multi-row responses — operates on LF-only text.
func Normalize(chunk []byte) []byte {
	s := string(chunk)
	s = strings.ReplaceAll(s, CRLF, LF)
	s = strings.ReplaceAll(s, CR, LF)
	return []byte(s)
}

// TrimBlankLines strips leading and trailing runs of LF (and the empty lines
// they produce) from a normalized chunk, per spec.md §4.1.
func TrimBlankLines(chunk []byte) []byte {
	return []byte(strings.Trim(string(chunk), LF))
}

// lookback bounds how far before the end of a growing response buffer a
// fresh scan needs to start: long enough to still catch a terminator whose
// leading "\n" landed in the previous chunk. It must be at least as long as
// the longest terminator literal ("+CME ERROR:") plus one for the anchoring
// newline.
const lookback = 16

// MatchTerminator reports whether buf (already normalized) ends in one of
// the three response terminators defined by spec.md §3: a line starting
// with "OK", a line starting with "ERROR" (including the +CME/+CMS ERROR:
// variants), or the "> " continuation prompt. scanned is the offset up to
// which buf was already known not to contain a terminator (the caller's
// "last-scanned offset", per spec.md §9's guidance to avoid repeated
// full-buffer scans); pass 0 to scan from the start.
//
// MatchTerminator returns the terminator kind found (or NoTerminator), the
// offset into buf one byte past the end of the terminator's line (past its
// LF, or len(buf) if that line has no LF yet; for the prompt, past the "> "
// itself) — so the whole terminator line, including any +CME/+CMS ERROR:
// detail, belongs to the response and anything after it can be sliced off —
// and a new scanned offset the caller should pass on the next call.
func MatchTerminator(buf []byte, scanned int) (kind TerminatorKind, end int, newScanned int) {
	from := scanned - lookback
	if from < 0 {
		from = 0
	}
	text := string(buf[from:])
	lineEnd := func(pos int) int {
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			return from + pos + nl + 1
		}
		return len(buf)
	}
	if idx, n := matchAt(text, OK); idx >= 0 {
		return TerminatorOK, lineEnd(idx + n), len(buf)
	}
	if idx, n := matchAt(text, ERROR); idx >= 0 {
		return TerminatorError, lineEnd(idx + n), len(buf)
	}
	if idx, n := matchAt(text, CmeErrorPrefix); idx >= 0 {
		return TerminatorError, lineEnd(idx + n), len(buf)
	}
	if idx, n := matchAt(text, CmsErrorPrefix); idx >= 0 {
		return TerminatorError, lineEnd(idx + n), len(buf)
	}
	if idx, n := matchAt(text, Prompt); idx >= 0 {
		return TerminatorPrompt, from + idx + n, len(buf)
	}
	return NoTerminator, -1, len(buf)
}

// matchAt finds literal at a line start within text: either at the very
// start of text, or immediately following a '\n'. It returns the index of
// the match and the literal's length, or (-1, 0) if not found.
func matchAt(text, literal string) (int, int) {
	if strings.HasPrefix(text, literal) {
		return 0, len(literal)
	}
	needle := LF + literal
	if idx := strings.Index(text, needle); idx >= 0 {
		return idx + 1, len(literal)
	}
	return -1, 0
}

// IsNotificationLine reports whether line (a single normalized line, no
// trailing LF) is an unsolicited notification: "+XXX:" where XXX is three or
// more uppercase letters or digits.
func IsNotificationLine(line string) bool {
	return notificationPattern.MatchString(line)
}

// ParseCMTI extracts the storage name and index from a +CMTI notification
// line, e.g. `+CMTI: "SM",4` -> ("SM", 4, true).
func ParseCMTI(line string) (storage string, index int, ok bool) {
	m := cmtiPattern.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	idx := 0
	for _, c := range m[2] {
		idx = idx*10 + int(c-'0')
	}
	return m[1], idx, true
}

// SplitLines splits a normalized, LF-delimited chunk into lines, dropping a
// single trailing empty element caused by a terminal LF. It does not trim
// blank lines in the middle of the chunk — callers that need that call
// TrimBlankLines first.
func SplitLines(chunk []byte) []string {
	s := string(chunk)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, LF)
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

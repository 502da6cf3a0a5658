package at_test

import (
	"testing"

	"i4.energy/across/smscore/at"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "OK\r\nERROR\r\n", "OK\nERROR\n"},
		{"lone cr", "OK\rERROR\r", "OK\nERROR\n"},
		{"already lf", "OK\nERROR\n", "OK\nERROR\n"},
		{"mixed", "a\r\nb\rc\n", "a\nb\nc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(at.Normalize([]byte(tt.input)))
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimBlankLines(t *testing.T) {
	got := string(at.TrimBlankLines([]byte("\n\n+CSQ: 15,99\nOK\n\n")))
	want := "+CSQ: 15,99\nOK"
	if got != want {
		t.Errorf("TrimBlankLines() = %q, want %q", got, want)
	}
}

func TestMatchTerminator(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		kind at.TerminatorKind
	}{
		{"plain ok", "OK\n", at.TerminatorOK},
		{"ok after data", "+CSQ: 15,99\nOK\n", at.TerminatorOK},
		{"error", "ERROR\n", at.TerminatorError},
		{"cme error", "+CME ERROR: 10\n", at.TerminatorError},
		{"cms error", "+CMS ERROR: 500\n", at.TerminatorError},
		{"prompt", "> ", at.TerminatorPrompt},
		{"prompt after echo", "AT+CMGS=12\n> ", at.TerminatorPrompt},
		{"no terminator yet", "+CSQ: 15,99\n", at.NoTerminator},
		{"ok substring inside word is not a terminator", "NOOK\n", at.NoTerminator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, end, _ := at.MatchTerminator([]byte(tt.buf), 0)
			if kind != tt.kind {
				t.Errorf("MatchTerminator(%q) kind = %v, want %v", tt.buf, kind, tt.kind)
			}
			if tt.kind != at.NoTerminator && end <= 0 {
				t.Errorf("MatchTerminator(%q) end = %d, want > 0", tt.buf, end)
			}
		})
	}
}

func TestMatchTerminatorIncremental(t *testing.T) {
	// Simulate a response arriving across two chunks: the terminator
	// should still be found once the second chunk completes it, using the
	// scanned offset returned after the first (non-matching) call.
	buf := []byte("+CSQ: 15,99\n")
	kind, _, scanned := at.MatchTerminator(buf, 0)
	if kind != at.NoTerminator {
		t.Fatalf("expected no terminator yet, got %v", kind)
	}
	buf = append(buf, []byte("OK\n")...)
	kind, end, _ := at.MatchTerminator(buf, scanned)
	if kind != at.TerminatorOK {
		t.Fatalf("expected OK terminator after second chunk, got %v", kind)
	}
	if end != len(buf) {
		t.Errorf("end = %d, want %d", end, len(buf))
	}
}

func TestIsNotificationLine(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`+CMTI: "SM",1`, true},
		{"+CREG: 1", true},
		{"+CSQ: 15,99", true},
		{"OK", false},
		{"ERROR", false},
		{"+CME ERROR: 10", false},
		{"+CMS ERROR: 500", false},
		{"Quectel", false},
		{"> ", false},
	}
	for _, tt := range tests {
		if got := at.IsNotificationLine(tt.line); got != tt.want {
			t.Errorf("IsNotificationLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseCMTI(t *testing.T) {
	storage, index, ok := at.ParseCMTI(`+CMTI: "SM",4`)
	if !ok || storage != "SM" || index != 4 {
		t.Errorf("ParseCMTI() = (%q, %d, %v), want (SM, 4, true)", storage, index, ok)
	}

	if _, _, ok := at.ParseCMTI("+CREG: 1"); ok {
		t.Error("ParseCMTI() on a non-CMTI line should fail")
	}
}

func TestSplitLines(t *testing.T) {
	got := at.SplitLines([]byte("+CMGL: 1,1,,10\nABCDEF\n+CMGL: 2,1,,10\n0123456\nOK\n"))
	want := []string{"+CMGL: 1,1,,10", "ABCDEF", "+CMGL: 2,1,,10", "0123456", "OK"}
	if len(got) != len(want) {
		t.Fatalf("SplitLines() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

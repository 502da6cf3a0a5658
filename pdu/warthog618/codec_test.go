package warthog618_test

import (
	"testing"

	"i4.energy/across/smscore/pdu/warthog618"
)

func TestGenerateSubmitThenParseRoundTrip(t *testing.T) {
	c := warthog618.New()

	fragments, err := c.GenerateSubmit("+819012345678", "hello world")
	if err != nil {
		t.Fatalf("GenerateSubmit() error = %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("GenerateSubmit() fragments = %d, want 1 for a short ASCII message", len(fragments))
	}

	msg, err := c.Parse(fragments[0].Hex)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if msg.Text != "hello world" {
		t.Errorf("Parse() text = %q, want %q", msg.Text, "hello world")
	}
	if msg.Destination != "+819012345678" {
		t.Errorf("Parse() destination = %q, want %q", msg.Destination, "+819012345678")
	}
}

func TestGenerateSubmitLongMessageFragments(t *testing.T) {
	c := warthog618.New()

	long := ""
	for i := 0; i < 40; i++ {
		long += "0123456789"
	}

	fragments, err := c.GenerateSubmit("+819012345678", long)
	if err != nil {
		t.Fatalf("GenerateSubmit() error = %v", err)
	}
	if len(fragments) < 2 {
		t.Fatalf("GenerateSubmit() fragments = %d, want >= 2 for a 400-char message", len(fragments))
	}

	var reassembled string
	for i, f := range fragments {
		msg, err := c.Parse(f.Hex)
		if err != nil {
			t.Fatalf("Parse() fragment %d error = %v", i, err)
		}
		if msg.Concat == nil {
			t.Fatalf("Parse() fragment %d has no concat header", i)
		}
		reassembled += msg.Text
	}
	if reassembled != long {
		t.Errorf("reassembled text does not match original input")
	}
}

func TestParseInvalidHex(t *testing.T) {
	c := warthog618.New()
	if _, err := c.Parse("not-hex"); err == nil {
		t.Error("Parse() on invalid hex should return an error")
	}
}

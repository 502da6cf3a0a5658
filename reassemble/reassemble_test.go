package reassemble_test

import (
	"testing"

	"i4.energy/across/smscore/pdu"
	"i4.energy/across/smscore/reassemble"
)

func fragment(index int, from string, ref, seq, total int, text string) reassemble.Message {
	return reassemble.Message{
		Index: index,
		Type:  pdu.SMSDeliver,
		From:  from,
		Text:  text,
		Concat: &reassemble.Concat{
			Reference: ref,
			Total:     total,
			Sequence:  seq,
		},
	}
}

func TestListReassemblyOutOfOrder(t *testing.T) {
	// Mirrors spec scenario 3: indexes 5, 4, 6 arrive with reference 17,
	// total 3, sequences 2, 1, 3.
	messages := []reassemble.Message{
		fragment(5, "+8190000000000", 17, 2, 3, "t2"),
		fragment(4, "+8190000000000", 17, 1, 3, "t1"),
		fragment(6, "+8190000000000", 17, 3, 3, "t3"),
	}

	out := reassemble.List(messages)
	if len(out) != 1 {
		t.Fatalf("List() produced %d messages, want 1 merged message", len(out))
	}

	merged := out[0]
	if merged.Text != "t1t2t3" {
		t.Errorf("merged text = %q, want %q", merged.Text, "t1t2t3")
	}
	if merged.Concat == nil || merged.Concat.Sequence != 0 {
		t.Errorf("merged concat.Sequence should be unset (dropped after merge), got %+v", merged.Concat)
	}
	want := []int{4, 5, 6}
	if merged.Concat == nil || len(merged.Concat.Indexes) != 3 {
		t.Fatalf("merged concat.Indexes = %v, want %v", merged.Concat, want)
	}
	for i, idx := range want {
		if merged.Concat.Indexes[i] != idx {
			t.Errorf("Indexes[%d] = %d, want %d", i, merged.Concat.Indexes[i], idx)
		}
	}
}

func TestListReassemblyPartialFlush(t *testing.T) {
	messages := []reassemble.Message{
		fragment(1, "+819000000001", 9, 1, 3, "a"),
		fragment(2, "+819000000001", 9, 3, 3, "c"),
		// sequence 2 never arrives.
	}

	out := reassemble.List(messages)
	if len(out) != 1 {
		t.Fatalf("List() produced %d messages, want 1", len(out))
	}
	if out[0].Text != "a[?]c" {
		t.Errorf("partial flush text = %q, want %q", out[0].Text, "a[?]c")
	}
}

func TestListPassesThroughUnfragmented(t *testing.T) {
	messages := []reassemble.Message{
		{Index: 1, Type: pdu.SMSDeliver, From: "+1", Text: "hello"},
	}
	out := reassemble.List(messages)
	if len(out) != 1 || out[0].Text != "hello" || out[0].Concat != nil {
		t.Errorf("List() on an unfragmented message = %+v", out)
	}
}

func TestLiveReassembly(t *testing.T) {
	live := reassemble.NewLive()

	if _, ok := live.Add(fragment(4, "+81900", 17, 1, 3, "t1")); ok {
		t.Fatal("Add() should not complete after the first of three fragments")
	}
	if _, ok := live.Add(fragment(5, "+81900", 17, 2, 3, "t2")); ok {
		t.Fatal("Add() should not complete after the second of three fragments")
	}

	merged, ok := live.Add(fragment(6, "+81900", 17, 3, 3, "t3"))
	if !ok {
		t.Fatal("Add() should complete after the third fragment")
	}
	if merged.Text != "t1t2t3" {
		t.Errorf("merged text = %q, want %q", merged.Text, "t1t2t3")
	}
}

func TestLiveReassemblyDuplicateSequenceOverwrites(t *testing.T) {
	live := reassemble.NewLive()
	live.Add(fragment(4, "+81900", 17, 1, 2, "first"))
	live.Add(fragment(40, "+81900", 17, 1, 2, "second"))
	merged, ok := live.Add(fragment(5, "+81900", 17, 2, 2, "t2"))
	if !ok {
		t.Fatal("Add() should complete after the final fragment")
	}
	if merged.Text != "secondt2" {
		t.Errorf("duplicate sequence should overwrite in place: text = %q, want %q", merged.Text, "secondt2")
	}
	if merged.Concat.Indexes[0] != 40 {
		t.Errorf("duplicate sequence should overwrite its index too: got %d, want 40", merged.Concat.Indexes[0])
	}
}

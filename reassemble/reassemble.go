// Package reassemble implements the concatenation reassembler (C5): it
// merges inbound SMS fragments, indexed by originator/recipient, reference
// and total, into single logical messages — both in "bulk list" mode over
// a full AT+CMGL response and in "live receive" mode as individual
// fragments arrive via +CMTI.
package reassemble

import (
	"strings"
	"time"

	"i4.energy/across/smscore/pdu"
)

// Concat is the concatenation state of a message, present iff the message
// is one fragment (or the merge) of a multi-part SMS. Exactly one of
// Sequence or Indexes is meaningful at a time: Sequence (1-based) on an
// individual fragment before merge, Indexes (length Total, ordered by
// sequence) after merge — never both.
type Concat struct {
	Reference int
	Total     int
	Sequence  int   // set on an unmerged fragment; 0 otherwise
	Indexes   []int // set on a merged message; nil otherwise
}

// Message is one SMS record, either a single unfragmented message or (post
// merge) the concatenation of all of a multi-part message's fragments.
type Message struct {
	Index int
	Stat  int
	Type  pdu.Type

	From string // set iff Type == pdu.SMSDeliver
	To   string // set iff Type == pdu.SMSSubmit

	Date    time.Time
	HasDate bool

	Concat *Concat
	Text   string
}

// counterpart returns the address the reassembly key should bucket on:
// the sender for an inbound DELIVER, the recipient for an outbound SUBMIT.
func (m Message) counterpart() string {
	if m.Type == pdu.SMSSubmit {
		return m.To
	}
	return m.From
}

// key is the reassembly bucket key of spec.md §3: (type, counterpart,
// reference, total), as a comparable struct rather than a joined string
// (spec.md §9's redesign guidance).
type key struct {
	msgType     pdu.Type
	counterpart string
	reference   int
	total       int
}

func keyOf(m Message) key {
	return key{
		msgType:     m.Type,
		counterpart: m.counterpart(),
		reference:   m.Concat.Reference,
		total:       m.Concat.Total,
	}
}

// bucket accumulates fragments of one concatenated message until every
// slot is filled or the enclosing list operation flushes it early.
type bucket struct {
	template Message // first fragment seen, used as the merged record's base
	total    int
	texts    []string
	indexes  []int
	filled   []bool
	count    int
}

func newBucket(m Message) *bucket {
	total := m.Concat.Total
	return &bucket{
		template: m,
		total:    total,
		texts:    make([]string, total),
		indexes:  make([]int, total),
		filled:   make([]bool, total),
	}
}

func (b *bucket) add(m Message) {
	seq := m.Concat.Sequence
	if seq < 1 || seq > b.total {
		return
	}
	slot := seq - 1
	if !b.filled[slot] {
		b.count++
	}
	b.filled[slot] = true
	b.texts[slot] = m.Text
	b.indexes[slot] = m.Index
}

func (b *bucket) complete() bool {
	return b.count == b.total
}

// merge produces the finalized merged message: text is the ordered
// concatenation of fragment texts, concat.indexes replaces concat.sequence,
// and any never-filled slot's text becomes the literal "[?]" (used both
// for a fully complete bucket, where every slot is filled, and for a
// partial flush at the end of a list operation).
func (b *bucket) merge() Message {
	out := b.template
	var text strings.Builder
	indexes := make([]int, b.total)
	for i := 0; i < b.total; i++ {
		if b.filled[i] {
			text.WriteString(b.texts[i])
			indexes[i] = b.indexes[i]
		} else {
			text.WriteString("[?]")
			indexes[i] = 0
		}
	}
	out.Text = text.String()
	out.Concat = &Concat{
		Reference: b.template.Concat.Reference,
		Total:     b.total,
		Indexes:   indexes,
	}
	return out
}

// List reassembles a full batch of messages (the output of a list_messages
// call): unfragmented messages pass through unchanged; fragments of the
// same key are merged in place at the position of their first-seen
// fragment, and any bucket still incomplete when the batch ends is flushed
// with "[?]" substitutions for missing fragments, per spec.md §4.5.
func List(messages []Message) []Message {
	buckets := make(map[key]*bucket)
	order := make([]key, 0)
	out := make([]Message, 0, len(messages))
	// position in out where each key's merged/placeholder record belongs
	slot := make(map[key]int)

	for _, m := range messages {
		if m.Concat == nil {
			out = append(out, m)
			continue
		}
		k := keyOf(m)
		b, seen := buckets[k]
		if !seen {
			b = newBucket(m)
			buckets[k] = b
			order = append(order, k)
			slot[k] = len(out)
			out = append(out, Message{}) // placeholder, replaced below
		}
		b.add(m)
	}

	for _, k := range order {
		out[slot[k]] = buckets[k].merge()
	}
	return out
}

// Live is the incremental counterpart to List, used when fragments arrive
// one at a time via +CMTI notifications. It owns a bucket map across calls
// and returns the merged message once a key's bucket fills. An
// unfragmented message is returned at once with ok=true; ok=false means the
// fragment's bucket is still incomplete.
type Live struct {
	buckets map[key]*bucket
}

// NewLive creates an empty live-mode reassembler.
func NewLive() *Live {
	return &Live{buckets: make(map[key]*bucket)}
}

// Add feeds one fragment (or unfragmented message) into the reassembler.
// It returns the merged message and ok=true exactly when fragment was the
// final slot needed to complete its bucket; the bucket is removed from
// the live state at that point. For an unfragmented message it returns the
// message unchanged with ok=true immediately.
func (l *Live) Add(m Message) (Message, bool) {
	if m.Concat == nil {
		return m, true
	}
	k := keyOf(m)
	b, seen := l.buckets[k]
	if !seen {
		b = newBucket(m)
		l.buckets[k] = b
	}
	b.add(m)
	if !b.complete() {
		return Message{}, false
	}
	delete(l.buckets, k)
	return b.merge(), true
}

package transport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"i4.energy/across/smscore/at"
)

// maxLineLength bounds a single accumulated response line; a modem that
// never produces a terminator (wrong baud rate, binary garbage on the
// line) would otherwise grow the buffer without bound.
const maxLineLength = 4096

// defaultCommandTimeout is used for Exec calls whose context carries no
// deadline.
const defaultCommandTimeout = 10 * time.Second

// Notification is a parsed unsolicited result code seen while no command
// was in flight, or interleaved with one's response.
type Notification struct {
	Line string
	Time time.Time
}

// Option configures an Arbiter at Open time.
type Option func(*Arbiter)

// WithCommandTimeout sets the default per-command timeout applied when
// Exec's context carries no deadline of its own.
func WithCommandTimeout(d time.Duration) Option {
	return func(a *Arbiter) { a.defaultTimeout = int64(d) }
}

// WithEventBuffer sets the capacity of the Events channel. Events are
// dropped, never blocked on, once the buffer is full.
func WithEventBuffer(n int) Option {
	return func(a *Arbiter) { a.eventBuf = n }
}

// WithNotificationBuffer sets the capacity of the Notifications channel.
func WithNotificationBuffer(n int) Option {
	return func(a *Arbiter) { a.notifyBuf = n }
}

// Arbiter is the AT transport arbiter (C2): it owns the one goroutine that
// reads the transport, serializes AT command execution so at most one
// command is outstanding at a time, classifies incoming text into command
// responses versus unsolicited notifications, and publishes an event
// stream (C6) describing everything it does.
type Arbiter struct {
	transport Transport

	defaultTimeout int64 // time.Duration, stored so zero-value Option works
	eventBuf       int
	notifyBuf      int

	commands chan *commandRequest
	notify   chan Notification
	events   chan Event

	cancel context.CancelFunc
	done   chan struct{}

	closeMu sync.Mutex
	closed  bool
}

type commandRequest struct {
	ctx        context.Context
	cmd        string
	respChan   chan commandResult
	terminator byte
}

type commandResult struct {
	response string
	err      error
}

// Open dials transport via dialer and starts the arbiter's read loop. The
// returned Arbiter is immediately usable: there is no separate step to
// start accepting commands, unlike a bare dial-then-loop split, because a
// half-open arbiter that can be dialed but not yet driven has no legitimate
// caller in this design.
func Open(ctx context.Context, dialer Dialer, opts ...Option) (*Arbiter, error) {
	tr, err := dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return OpenTransport(tr, opts...), nil
}

// OpenTransport starts the arbiter's read loop directly on an
// already-connected Transport, bypassing the Dialer. Tests use this to
// drive the arbiter against a fake Transport.
func OpenTransport(tr Transport, opts ...Option) *Arbiter {
	a := &Arbiter{
		transport:      tr,
		defaultTimeout: int64(defaultCommandTimeout),
		eventBuf:       64,
		notifyBuf:      64,
		commands:       make(chan *commandRequest),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.notify = make(chan Notification, a.notifyBuf)
	a.events = make(chan Event, a.eventBuf)

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.emit(Event{Kind: EventPortOpen})
	go a.readLoop(loopCtx)
	return a
}

// Events returns the arbiter's observability event stream.
func (a *Arbiter) Events() <-chan Event {
	return a.events
}

// Notifications returns the channel of unsolicited notification lines seen
// while no command was outstanding (or interleaved with one).
func (a *Arbiter) Notifications() <-chan Notification {
	return a.notify
}

// Publish injects an event into this arbiter's Events() stream. It exists
// so a layer above the arbiter — session, for EventSMSMessage — can raise
// events through the same sink its own protocol-level events flow through,
// without the arbiter needing to know about that layer's types.
func (a *Arbiter) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	a.emit(ev)
}

// Exec sends cmd to the modem and waits for its response. Only one Exec may
// be outstanding at a time; a concurrent caller while one is already in
// flight gets ErrBusy rather than being queued. If the response terminator
// was ERROR/+CME ERROR:/+CMS ERROR:, Exec returns the accumulated response
// text alongside a *CommandError.
func (a *Arbiter) Exec(ctx context.Context, cmd string) (string, error) {
	a.closeMu.Lock()
	closed := a.closed
	a.closeMu.Unlock()
	if closed {
		return "", ErrClosed
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.defaultTimeout))
		defer cancel()
	}

	req := &commandRequest{
		ctx:      ctx,
		cmd:      cmd,
		respChan: make(chan commandResult, 1),
	}

	select {
	case a.commands <- req:
	case <-a.done:
		return "", ErrClosed
	case <-ctx.Done():
		return "", fmt.Errorf("command %q cancelled before dispatch: %w", cmd, ctx.Err())
	}

	// Once dispatched, the read loop owns req's lifetime: it is guaranteed to
	// push exactly one result to respChan, whether a terminator arrives, ctx
	// fires (a *TimeoutError, releasing the slot), or the arbiter closes.
	res := <-req.respChan
	return res.response, res.err
}

// WritePDUBody writes the hex-encoded PDU body for an outstanding CMGS/CMGW
// prompt, terminated by Ctrl-Z, and waits for the final response. It must
// only be called after Exec has returned a TerminatorPrompt-style response
// for the announcing command (session.SendMessage and
// session.WriteSubmitMessage drive this sequence).
func (a *Arbiter) WritePDUBody(ctx context.Context, pdu string) (string, error) {
	return a.Exec(ctx, pdu+string(at.CtrlZ))
}

// AbortPrompt writes the Escape byte to cancel an outstanding CMGS/CMGW
// prompt instead of completing it.
func (a *Arbiter) AbortPrompt(ctx context.Context) (string, error) {
	return a.Exec(ctx, string(at.Escape))
}

// Close stops the read loop and closes the underlying transport. It is
// idempotent: calling it more than once after the first call returns nil.
func (a *Arbiter) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	a.closeMu.Unlock()

	a.cancel()
	<-a.done
	err := a.transport.Close()

	// Hold closeMu across the final emit and the channel close so a
	// concurrent Publish/emit can never observe "not yet closed" and then
	// send after these channels are gone.
	a.closeMu.Lock()
	a.emitLocked(Event{Kind: EventPortClose, Err: err})
	close(a.events)
	close(a.notify)
	a.closeMu.Unlock()
	return err
}

// emit publishes ev unless the arbiter is already closed, taking closeMu
// itself. Do not call it while already holding closeMu — use emitLocked.
func (a *Arbiter) emit(ev Event) {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	if a.closed {
		return
	}
	a.emitLocked(ev)
}

// emitLocked publishes ev; the caller must already hold closeMu and must
// have already verified the arbiter is not closed.
func (a *Arbiter) emitLocked(ev Event) {
	select {
	case a.events <- ev:
	default:
		// Event buffer full: observability must never stall the arbiter.
	}
}

// readLoop starts the single goroutine permitted to read the transport and
// receives its chunks. It owns the accumulated response buffer, dispatches completed command
// responses back to their caller, and classifies idle-time text as
// notifications.
func (a *Arbiter) readLoop(ctx context.Context) {
	defer close(a.done)

	buf := make([]byte, 4096)
	var pending []byte
	var scanned int
	var current *commandRequest

	readErrs := make(chan error, 1)
	chunks := make(chan []byte)

	go func() {
		for {
			n, err := a.transport.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				select {
				case readErrs <- err:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	fail := func(err error) {
		if current != nil {
			current.respChan <- commandResult{err: err}
			current = nil
		}
	}

	for {
		var currentDone <-chan struct{}
		if current != nil {
			currentDone = current.ctx.Done()
		}

		select {
		case <-ctx.Done():
			fail(ctx.Err())
			return

		case err := <-readErrs:
			fail(&IoError{Op: "read", Err: err})
			return

		case <-currentDone:
			current.respChan <- commandResult{err: &TimeoutError{
				Command:    current.cmd,
				Terminator: current.terminator,
				Err:        current.ctx.Err(),
			}}
			current = nil
			pending = nil
			scanned = 0
			continue

		case chunk := <-chunks:
			a.emit(Event{Kind: EventRawBytes, Data: string(chunk)})
			pending = append(pending, at.Normalize(chunk)...)
			lineStart := bytes.LastIndexByte(pending, '\n') + 1
			if len(pending)-lineStart > maxLineLength && current != nil {
				current.respChan <- commandResult{err: ErrLineTooLong}
				current = nil
				pending = nil
				scanned = 0
				continue
			}

		case req := <-a.commands:
			if current != nil {
				req.respChan <- commandResult{err: ErrBusy}
				continue
			}
			req.terminator = at.CR[0]
			if strings.HasSuffix(req.cmd, string(at.CtrlZ)) {
				req.terminator = at.CtrlZ
			}
			current = req
			scanned = 0
			wire := strings.TrimSpace(req.cmd)
			if req.terminator != at.CtrlZ {
				wire += at.CR
			}
			a.emit(Event{Kind: EventATCommand, Data: req.cmd})
			if _, err := a.transport.Write([]byte(wire)); err != nil {
				req.respChan <- commandResult{err: &IoError{Op: fmt.Sprintf("write command %q", req.cmd), Err: err}}
				current = nil
			}
			continue
		}

		pending, scanned, current = a.drain(pending, scanned, current)
	}
}

// drain consumes as much of pending as can be classified right now: it
// completes the current command if its terminator has arrived, and emits
// any idle-time notification lines. It returns the unconsumed remainder of
// pending along with the updated scan offset and in-flight command.
func (a *Arbiter) drain(pending []byte, scanned int, current *commandRequest) ([]byte, int, *commandRequest) {
	for {
		if current != nil {
			kind, end, newScanned := at.MatchTerminator(pending, scanned)
			if kind == at.NoTerminator {
				return pending, newScanned, current
			}

			var response string
			if kind == at.TerminatorPrompt {
				response = strings.Join(at.SplitLines(at.TrimBlankLines(pending[:end-len(at.Prompt)])), "\n")
			} else {
				response = strings.Join(at.SplitLines(at.TrimBlankLines(pending[:end])), "\n")
			}

			var err error
			if kind == at.TerminatorError {
				err = &CommandError{Command: current.cmd, Response: response}
			}
			a.emit(Event{Kind: EventATResponse, Data: response, Err: err})
			current.respChan <- commandResult{response: response, err: err}
			current = nil

			pending = pending[end:]
			scanned = 0
			continue
		}

		nl := indexByte(pending, '\n')
		if nl < 0 {
			return pending, scanned, current
		}
		line := strings.TrimRight(string(pending[:nl]), at.LF)
		pending = pending[nl+1:]
		scanned = 0
		if line == "" {
			continue
		}
		if at.IsNotificationLine(line) {
			n := Notification{Line: line, Time: time.Now()}
			a.emit(Event{Kind: EventATNotification, Data: line})
			select {
			case a.notify <- n:
			default:
			}
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

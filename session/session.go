// Package session implements the SMS session layer (C4): a stateful
// orchestrator over an AT transport arbiter that runs the modem
// initialization sequence and exposes the high-level list/read/delete/
// send/write-submit/send-stored operations and info queries spec.md §4.4
// names, reassembling concatenated SMS via the reassemble package as it
// goes.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"i4.energy/across/smscore/at"
	"i4.energy/across/smscore/geoloc"
	"i4.energy/across/smscore/pdu"
	"i4.energy/across/smscore/reassemble"
	"i4.energy/across/smscore/transport"
)

// initSequence is the six-command modem bring-up sequence of spec.md §4.4,
// run once, in order, before any high-level operation is accepted.
var initSequence = []string{
	"ATE0",
	"ATQ0",
	"ATV1",
	"ATS0=0",
	"AT+CNMI=2,1,0,0,0",
	"AT+CMGF=0",
}

// Config holds the options a Session is opened with.
type Config struct {
	codec          pdu.Codec
	commandTimeout time.Duration
	initTimeout    time.Duration
	concatMode     bool
	geo            *geoloc.Client
	logger         *zap.SugaredLogger
}

// Option configures a Session at Open time.
type Option func(*Config)

// WithCommandTimeout overrides the per-command timeout applied to every
// exec the session issues. Defaults to 10s, per spec.md §5.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) { c.commandTimeout = d }
}

// WithInitTimeout bounds the entire six-command init sequence.
func WithInitTimeout(d time.Duration) Option {
	return func(c *Config) { c.initTimeout = d }
}

// WithConcatMode toggles automatic concatenated-SMS reassembly. It is
// enabled by default; disabling it makes list_messages/read_message
// return raw, unmerged fragments.
func WithConcatMode(enabled bool) Option {
	return func(c *Config) { c.concatMode = enabled }
}

// WithGeolocation injects a geoloc.Client so LocationInfo can resolve a
// street address from the serving cell; without one, LocationInfo returns
// only the CREG-derived LAC/CID.
func WithGeolocation(g *geoloc.Client) Option {
	return func(c *Config) { c.geo = g }
}

// WithLogger injects the structured logger the session threads through
// every operation. A nil logger (including never calling this option) is
// replaced with a no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Config) { c.logger = l }
}

// Session is bound to one transport.Arbiter's lifetime: it owns the modem
// initialization state, the live-mode reassembler, and the background
// notification watcher that turns +CMTI into reassembled sms-message
// events.
type Session struct {
	arb    *transport.Arbiter
	codec  pdu.Codec
	geo    *geoloc.Client
	logger *zap.SugaredLogger

	concatMode bool
	live       *reassemble.Live

	bgCancel context.CancelFunc
	bgDone   chan struct{}
}

// Open dials dialer, starts the transport arbiter, runs the modem
// initialization sequence, and starts the background +CMTI watcher. The
// returned Session is immediately usable; there is no separate step to
// begin accepting operations.
func Open(ctx context.Context, dialer transport.Dialer, codec pdu.Codec, opts ...Option) (*Session, error) {
	cfg := Config{
		commandTimeout: 10 * time.Second,
		initTimeout:    30 * time.Second,
		concatMode:     true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop().Sugar()
	}
	if codec == nil {
		return nil, fmt.Errorf("session: codec is required")
	}

	arb, err := transport.Open(ctx, dialer, transport.WithCommandTimeout(cfg.commandTimeout))
	if err != nil {
		return nil, fmt.Errorf("session: open transport: %w", err)
	}

	s := &Session{
		arb:        arb,
		codec:      codec,
		geo:        cfg.geo,
		logger:     cfg.logger,
		concatMode: cfg.concatMode,
		live:       reassemble.NewLive(),
	}

	initCtx := ctx
	if cfg.initTimeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, cfg.initTimeout)
		defer cancel()
	}
	if err := s.init(initCtx); err != nil {
		arb.Close()
		return nil, err
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s.bgCancel = bgCancel
	s.bgDone = make(chan struct{})
	go s.watchNotifications(bgCtx)

	return s, nil
}

// Close stops the notification watcher and closes the underlying
// transport arbiter. It is safe to call more than once.
func (s *Session) Close() error {
	s.bgCancel()
	<-s.bgDone
	return s.arb.Close()
}

// Events returns the session's event stream (C6): the arbiter's
// protocol-level events plus the sms-message events this session raises
// for each message received in live mode: an unfragmented message at once,
// a concatenated one once it finishes reassembling.
func (s *Session) Events() <-chan transport.Event {
	return s.arb.Events()
}

func (s *Session) init(ctx context.Context) error {
	for _, cmd := range initSequence {
		resp, err := s.arb.Exec(ctx, cmd)
		if err != nil {
			return &InitFailure{Command: cmd, Response: responseText(resp, err)}
		}
		if !strings.Contains(resp, at.OK) {
			return &InitFailure{Command: cmd, Response: resp}
		}
	}
	return nil
}

func responseText(resp string, err error) string {
	if resp != "" {
		return resp
	}
	return err.Error()
}

// watchNotifications consumes the arbiter's notification stream for the
// lifetime of the session, turning +CMTI indications into live-mode
// reassembly via readRaw + reassemble.Live.
func (s *Session) watchNotifications(ctx context.Context) {
	defer close(s.bgDone)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.arb.Notifications():
			if !ok {
				return
			}
			storage, index, ok := at.ParseCMTI(n.Line)
			if !ok {
				continue
			}
			s.handleIncoming(ctx, storage, index)
		}
	}
}

func (s *Session) handleIncoming(ctx context.Context, storage string, index int) {
	msg, err := s.readRaw(ctx, index)
	if err != nil {
		s.logger.Warnw("failed to read incoming SMS", "storage", storage, "index", index, "error", err)
		return
	}
	if msg == nil {
		return
	}
	merged, ready := s.live.Add(*msg)
	if !ready {
		return
	}
	s.arb.Publish(transport.Event{Kind: transport.EventSMSMessage, Payload: &merged})
}

// isHexPDU reports whether line looks like an upper- or lowercase hex PDU
// body: non-empty, even length, hex digits only.
func isHexPDU(line string) bool {
	if line == "" || len(line)%2 != 0 {
		return false
	}
	for _, c := range line {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'F':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}

// toReassembleMessage builds a reassemble.Message from a decoded PDU plus
// the index/stat the header line carried.
func toReassembleMessage(index, stat int, decoded pdu.Message) reassemble.Message {
	m := reassemble.Message{
		Index:   index,
		Stat:    stat,
		Type:    decoded.Type,
		From:    decoded.Origination,
		To:      decoded.Destination,
		Date:    decoded.Timestamp,
		HasDate: decoded.HasTimestamp,
		Text:    decoded.Text,
	}
	if decoded.Concat != nil {
		m.Concat = &reassemble.Concat{
			Reference: decoded.Concat.Reference,
			Total:     decoded.Concat.Total,
			Sequence:  decoded.Concat.Sequence,
		}
	}
	return m
}

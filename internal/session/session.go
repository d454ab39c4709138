// Package session implements the session protocol engine: the state
// machine of spec.md §4.4, driven by XML events parsed from documents the
// rfc6242 Framer assembles, producing reply bytes framed for the active
// mode. Grounded on netconf-light.c's single global session/handler()
// pair, restructured as one Session value per connection the way the
// teacher's SessionHandler (v2/netconf/server/netconf/server.go) wraps a
// connection instead of relying on process-globals (spec.md §9's
// "Global mutable state" design note).
package session

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/netconf-light/agent/internal/device"
	"github.com/netconf-light/agent/internal/netconf/common"
	"github.com/netconf-light/agent/internal/netconf/common/codec"
	"github.com/netconf-light/agent/internal/netconf/rfc6242"
	"github.com/netconf-light/agent/internal/netconf/xmlevent"
	"github.com/netconf-light/agent/internal/store"
	"github.com/netconf-light/agent/internal/trace"
)

// ErrSecondSession is returned by a Supervisor when a second concurrent
// connection attempts to start a session while one is already connected
// (spec.md §3's "Only one session may be connected at any time" invariant).
var ErrSecondSession = errors.New("session: a session is already connected")

// Session is one connection's live protocol state. It is not safe for
// concurrent use: the cooperative single-task model of spec.md §5 never
// calls into a Session from more than one goroutine at a time.
type Session struct {
	cfg *Config
	dev device.Device
	id  uuid.UUID

	input, draft, running, output store.ByteStream
	framer                        *rfc6242.Framer

	state               State
	peerSupportsChunked bool
	peerCapabilities    []string

	messageID  string
	replyAttrs []common.ReplyAttr

	locked     bool
	lockingOp  lockOp
	activeSink activeSink

	compliant       bool
	foundCopyConfig bool

	errored               bool
	abruptClose           bool
	terminateAfterReply   bool
	closeSessionRequested bool
	closeRequested        bool

	outbound []byte
	outPos   int

	lastEvent time.Time
}

// New creates a Session for one accepted connection. running is the
// persistent configuration stream, owned by the caller and shared across
// reconnects; input/draft/output are fresh in-memory scratch streams.
func New(cfg *Config, dev device.Device, running store.ByteStream, id uuid.UUID) *Session {
	if cfg == nil {
		cfg = DefaultConfig
	}
	input := store.NewMemStream()
	draft := store.NewMemStream()
	output := store.NewMemStream()
	return &Session{
		cfg:     cfg,
		dev:     dev,
		id:      id,
		input:   input,
		draft:   draft,
		running: running,
		output:  output,
		framer:  rfc6242.NewFramer(input, draft),
		state:   Uninitialized,
	}
}

// ID returns the connection correlation id attached to this session.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the session's current protocol state.
func (s *Session) State() State { return s.state }

// Open marks the transport as up and returns the agent's own hello
// greeting, always framed end-of-message (the peer's capabilities are not
// yet known). The caller writes the returned bytes to the transport
// immediately.
func (s *Session) Open(ctx context.Context, remote string) []byte {
	s.lastEvent = time.Now()
	trace.ContextTrace(ctx).ConnAccepted(s.id, remote)
	hello := common.HelloMessage{Capabilities: common.AgentCapabilities, SessionID: 1}
	out, err := codec.Encode(hello, codec.EndOfMessage, s.cfg.OutputChunkSize)
	if err != nil {
		return nil
	}
	return out
}

// DataIn feeds bytes received from the transport through the framer and
// drives the state machine for every message the framer assembles,
// including any that were already waiting in draft. The returned error is
// non-nil only for unrecoverable local I/O failures (a ByteStream
// operation failing); protocol-level errors are handled internally and
// surfaced via rpc-error replies or ShouldClose, never as a Go error here.
func (s *Session) DataIn(ctx context.Context, data []byte) error {
	s.lastEvent = time.Now()
	res, err := s.framer.Feed(data)
	if err != nil {
		trace.ContextTrace(ctx).FramingError(s.id, err)
		s.closeRequested = true
		return nil
	}
	for {
		if res != rfc6242.MessageReady {
			return nil
		}
		if err := s.processDocument(ctx); err != nil {
			return err
		}
		if s.closeRequested {
			return nil
		}
		if !s.framer.HasDraft() {
			return nil
		}
		res, err = s.framer.ContinueFromDraft()
		if err != nil {
			trace.ContextTrace(ctx).FramingError(s.id, err)
			s.closeRequested = true
			return nil
		}
	}
}

// processDocument runs the compliance pre-pass and the main dispatch pass
// over one complete input document, then finalizes the reply for
// transmission.
func (s *Session) processDocument(ctx context.Context) error {
	doc, err := s.input.ReadAll()
	if err != nil {
		return err
	}

	s.foundCopyConfig, s.compliant = checkCompliance(doc)

	s.errored = false
	s.abruptClose = false
	s.terminateAfterReply = false
	s.closeSessionRequested = false

	r := xmlevent.NewReader(doc)
	for {
		ev, eerr := r.Next()
		if eerr == io.EOF {
			break
		}
		if eerr != nil {
			// Malformed XML inside a well-framed document: an
			// unrecoverable parse error (spec.md §7 category 2).
			s.terminateAfterReply = true
			_ = s.emitErrorReply(ctx, common.ErrTypeRPC, common.ErrTagOperationFailed, "malformed xml")
			break
		}
		s.dispatch(ctx, ev)
		if s.abruptClose {
			break
		}
	}

	if s.abruptClose {
		s.closeRequested = true
		return nil
	}

	if err := s.finalizeOutbound(); err != nil {
		return err
	}

	switch {
	case s.terminateAfterReply || s.closeSessionRequested:
		s.closeRequested = true
	case s.errored:
		s.state = RcvdHello
	}
	return nil
}

// ShouldClose reports whether the transport should be closed once any
// queued outbound bytes have been drained.
func (s *Session) ShouldClose() bool { return s.closeRequested }

// CheckTimeout reports whether more than the configured inactivity
// timeout has elapsed since the last transport event, per spec.md §5's
// 30s periodic timer.
func (s *Session) CheckTimeout(ctx context.Context, now time.Time) bool {
	if now.Sub(s.lastEvent) < s.cfg.InactivityTimeout {
		return false
	}
	trace.ContextTrace(ctx).Timeout(s.id, s.lastEvent)
	s.closeRequested = true
	return true
}

// Closed tears the session down on transport close or forced teardown,
// matching spec.md §5's cancellation effects: clears locked, resets state,
// and releases the lock the session may have been holding.
func (s *Session) Closed(ctx context.Context, err error) {
	trace.ContextTrace(ctx).ConnClosed(s.id, err)
	s.locked = false
	s.state = Uninitialized
	s.outbound = nil
	s.outPos = 0
	_ = s.input.Close()
	_ = s.draft.Close()
	_ = s.output.Close()
}

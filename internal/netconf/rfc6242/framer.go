// Package rfc6242 reassembles the NETCONF wire byte stream into complete
// peer messages. It supports both framing modes of RFC 6242: the legacy
// end-of-message sentinel ("]]>]]>") and the chunked form used once a peer's
// hello advertises base:1.1. The phase machine below is grounded directly on
// original_source/netconf-light.c's process_input/process_extra byte-level
// handling, which this agent's single-threaded, event-driven loop requires
// (feed bytes as they arrive, never block on a read) — unlike a
// bufio.Reader-driven decoder, which would need its own goroutine per
// session. Chunk-header numeric parsing and the overflow guard mirror the
// teacher's rfc6242 package (NewDecoder/readHeader equivalent), adapted
// to this push model.
package rfc6242

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/netconf-light/agent/internal/store"
)

// Mode selects which RFC 6242 framing grammar the Framer is applying.
type Mode int

// Framing modes.
const (
	EndOfMessage Mode = iota
	Chunked
)

// Result is the outcome of a Feed call.
type Result int

// Feed results.
const (
	NeedMore Result = iota
	MessageReady
)

// ErrFraming is returned (wrapped with a reason) for any framing-level
// protocol violation; the session must close the transport without a reply.
var ErrFraming = errors.New("rfc6242: message framing error")

// phase is the chunked-mode sub-state between chunk boundaries.
type phase int

const (
	phaseIdle phase = iota
	phaseAfterLF
	phaseAfterHash
	phaseReadingLength
	phaseReadingBody
	phaseAfterTrailingHash
)

// maxChunkLength caps the decimal chunk-length accumulator so a hostile
// peer cannot overflow it; chosen well above any chunk this agent will
// ever legitimately see.
const maxChunkLength = 1 << 28

// maxMessageBytes caps end-of-message mode's unbounded scan-for-sentinel
// buffer, standing in for the "cap to the available buffer" guidance.
const maxMessageBytes = 1 << 20

var eomSentinel = []byte("]]>]]>")

// Framer reassembles wire bytes into complete documents, appending message
// bytes to input and any bytes that arrive past the end of a message to
// draft. It is not safe for concurrent use.
type Framer struct {
	mode  Mode
	phase phase

	chunkLenDigits int
	chunkRemaining int

	input     store.ByteStream
	draft     store.ByteStream
	inputOpen bool

	queue []byte
}

// NewFramer creates a Framer that assembles messages into input and spills
// overflow into draft. It starts in EndOfMessage mode, as every session
// must before a peer's hello is parsed.
func NewFramer(input, draft store.ByteStream) *Framer {
	return &Framer{mode: EndOfMessage, input: input, draft: draft}
}

// appendInput writes b to input, truncating it first if this is the first
// write for the message currently being assembled. input is single-writer
// and truncates on open, so each message starts with a clean stream.
func (f *Framer) appendInput(b []byte) error {
	if !f.inputOpen {
		if err := f.input.Truncate(); err != nil {
			return err
		}
		f.inputOpen = true
	}
	return f.input.Append(b)
}

// SetChunked switches the Framer to chunked framing. Called once the
// session has parsed a peer hello advertising base:1.1; never reverts.
func (f *Framer) SetChunked() {
	f.mode = Chunked
	f.phase = phaseIdle
}

// HasDraft reports whether bytes from a following message have already
// arrived and are waiting in draft.
func (f *Framer) HasDraft() bool {
	return f.draft.Len() > 0
}

// Feed processes bytes newly delivered by the transport. It returns
// MessageReady as soon as a complete document has been written to input;
// any bytes delivered past the end of that document are moved to draft
// before Feed returns.
func (f *Framer) Feed(data []byte) (Result, error) {
	f.queue = append(f.queue, data...)
	return f.drain()
}

// ContinueFromDraft resumes assembly using bytes that arrived early and
// were spilled to draft by a previous Feed/ContinueFromDraft call. The
// caller should prefer this over waiting on the transport whenever
// HasDraft reports true, mirroring the source agent's process_extra
// priority over fresh transport events.
func (f *Framer) ContinueFromDraft() (Result, error) {
	pending, err := f.draft.ReadAll()
	if err != nil {
		return NeedMore, err
	}
	if err := f.draft.Truncate(); err != nil {
		return NeedMore, err
	}
	f.queue = append(f.queue, pending...)
	return f.drain()
}

func (f *Framer) drain() (Result, error) {
	if f.mode == Chunked {
		return f.drainChunked()
	}
	return f.drainEndOfMessage()
}

func (f *Framer) messageComplete() (Result, error) {
	overflow := f.queue
	f.queue = nil
	f.phase = phaseIdle
	f.chunkRemaining = 0
	f.chunkLenDigits = 0
	f.inputOpen = false
	if len(overflow) > 0 {
		if err := f.draft.Truncate(); err != nil {
			return NeedMore, err
		}
		if err := f.draft.Append(overflow); err != nil {
			return NeedMore, err
		}
	}
	return MessageReady, nil
}

func (f *Framer) drainEndOfMessage() (Result, error) {
	if len(f.queue) > maxMessageBytes {
		return NeedMore, errors.Wrap(ErrFraming, "message exceeds maximum size")
	}
	idx := bytes.Index(f.queue, eomSentinel)
	if idx < 0 {
		return NeedMore, nil
	}
	body := f.queue[:idx]
	f.queue = f.queue[idx+len(eomSentinel):]
	if err := f.appendInput(body); err != nil {
		return NeedMore, err
	}
	return f.messageComplete()
}

func (f *Framer) drainChunked() (Result, error) {
	for {
		switch f.phase {
		case phaseIdle:
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			if f.queue[0] != '\n' {
				return NeedMore, errors.Wrap(ErrFraming, "expected chunk header LF")
			}
			f.queue = f.queue[1:]
			f.phase = phaseAfterLF

		case phaseAfterLF:
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			if f.queue[0] != '#' {
				return NeedMore, errors.Wrap(ErrFraming, "expected '#' after chunk header LF")
			}
			f.queue = f.queue[1:]
			f.phase = phaseAfterHash

		case phaseAfterHash:
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			switch {
			case f.queue[0] == '#':
				f.queue = f.queue[1:]
				f.phase = phaseAfterTrailingHash
			case f.queue[0] >= '1' && f.queue[0] <= '9':
				f.chunkLenDigits = int(f.queue[0] - '0')
				f.queue = f.queue[1:]
				f.phase = phaseReadingLength
			default:
				return NeedMore, errors.Wrap(ErrFraming, "expected chunk length or '#'")
			}

		case phaseReadingLength:
			consumed := 0
			for consumed < len(f.queue) {
				b := f.queue[consumed]
				if b == '\n' {
					break
				}
				if b < '0' || b > '9' {
					return NeedMore, errors.Wrap(ErrFraming, "non-digit in chunk length")
				}
				if f.chunkLenDigits > maxChunkLength/10 {
					return NeedMore, errors.Wrap(ErrFraming, "chunk length overflow")
				}
				f.chunkLenDigits = f.chunkLenDigits*10 + int(b-'0')
				consumed++
			}
			f.queue = f.queue[consumed:]
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			// f.queue[0] == '\n'
			f.queue = f.queue[1:]
			f.chunkRemaining = f.chunkLenDigits
			f.chunkLenDigits = 0
			f.phase = phaseReadingBody

		case phaseReadingBody:
			if f.chunkRemaining == 0 {
				f.phase = phaseIdle
				continue
			}
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			n := f.chunkRemaining
			if n > len(f.queue) {
				n = len(f.queue)
			}
			if err := f.appendInput(f.queue[:n]); err != nil {
				return NeedMore, err
			}
			f.queue = f.queue[n:]
			f.chunkRemaining -= n
			if f.chunkRemaining == 0 {
				f.phase = phaseIdle
			} else {
				return NeedMore, nil
			}

		case phaseAfterTrailingHash:
			if len(f.queue) == 0 {
				return NeedMore, nil
			}
			if f.queue[0] != '\n' {
				return NeedMore, errors.Wrap(ErrFraming, "expected LF after end-of-chunks marker")
			}
			f.queue = f.queue[1:]
			return f.messageComplete()
		}
	}
}

// Package codec marshals typed messages (principally HelloMessage) to wire
// bytes and frames them per RFC 6242, mirroring the shape of the teacher's
// common/codec package (Encoder wrapping an xml.Encoder over an
// rfc6242.Encoder) adapted to this agent's push model: instead of writing
// directly to a net.Conn, Encode returns the framed bytes for the caller to
// hand to the transport, since the session loop here never blocks on I/O.
package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/pkg/errors"
)

// FramingMode selects which RFC 6242 grammar Encode produces.
type FramingMode int

// Framing modes, matching rfc6242.Mode's values.
const (
	EndOfMessage FramingMode = iota
	Chunked
)

// fallbackChunkSize is the chunk size Frame uses when given a non-positive
// chunkSize, so a caller that forgets to wire its configured value still
// frames correctly rather than producing a zero-length infinite loop.
const fallbackChunkSize = 4096

// Encode marshals msg as an XML document (prefixed with the XML
// declaration, as the teacher's Encoder does) and frames it per mode,
// returning the exact bytes to write to the transport. chunkSize is the
// chunked-mode payload size per chunk header; it is ignored in
// EndOfMessage mode.
func Encode(msg interface{}, mode FramingMode, chunkSize int) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(xml.Header)
	enc := xml.NewEncoder(&body)
	if err := enc.Encode(msg); err != nil {
		return nil, errors.Wrap(err, "codec: marshal message")
	}
	return Frame(body.Bytes(), mode, chunkSize), nil
}

// Frame wraps a complete XML document's bytes in the chosen RFC 6242
// framing, without otherwise inspecting the document. In Chunked mode,
// chunkSize is the payload size used per chunk header, matching spec.md
// §4.5's 100-byte-per-chunk output cadence when the caller passes its
// configured Config.OutputChunkSize.
func Frame(doc []byte, mode FramingMode, chunkSize int) []byte {
	if mode == EndOfMessage {
		out := make([]byte, 0, len(doc)+6)
		out = append(out, doc...)
		out = append(out, "]]>]]>"...)
		return out
	}
	if chunkSize <= 0 {
		chunkSize = fallbackChunkSize
	}
	var out bytes.Buffer
	for off := 0; off < len(doc); off += chunkSize {
		end := off + chunkSize
		if end > len(doc) {
			end = len(doc)
		}
		chunk := doc[off:end]
		fmt.Fprintf(&out, "\n#%d\n", len(chunk))
		out.Write(chunk)
	}
	out.WriteString("\n##\n")
	return out.Bytes()
}

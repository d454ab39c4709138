// Reply building and the chunked/end-of-message output drain, grounded on
// netconf-light.c's XmlWriter calls in handler()/getOperationalState() for
// content and on send_output for the drain cadence, with the teacher's
// rfc6242/encoder.go writeChunked loop as the idiomatic Go shape for
// segmenting the framed buffer.
package session

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/netconf-light/agent/internal/device"
	"github.com/netconf-light/agent/internal/netconf/common"
	"github.com/netconf-light/agent/internal/netconf/common/codec"
	"github.com/netconf-light/agent/internal/trace"
)

func escapeAttr(v string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(v))
	return buf.String()
}

// beginReply truncates output and writes the XML prolog and opening
// <rpc-reply> tag, echoing reply_attrs in order.
func (s *Session) beginReply() error {
	if err := s.output.Truncate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<rpc-reply message-id="`)
	buf.WriteString(escapeAttr(s.messageID))
	buf.WriteByte('"')
	for _, a := range s.replyAttrs {
		buf.WriteByte(' ')
		if a.Prefix != "" {
			buf.WriteString(a.Prefix)
			buf.WriteByte(':')
		}
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(a.Value))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	return s.output.Append(buf.Bytes())
}

func (s *Session) writeRaw(b []byte) error {
	return s.output.Append(b)
}

func (s *Session) writeRawString(str string) error {
	return s.output.Append([]byte(str))
}

func (s *Session) closeReply() error {
	return s.writeRawString("</rpc-reply>")
}

// emitOkReply writes a complete <rpc-reply><ok/></rpc-reply> document.
func (s *Session) emitOkReply() error {
	if err := s.beginReply(); err != nil {
		return err
	}
	if err := s.writeRawString("<ok/>"); err != nil {
		return err
	}
	return s.closeReply()
}

// emitErrorReply writes a complete <rpc-reply> wrapping a single
// <rpc-error>, per spec.md §4.4's reply envelope rule.
func (s *Session) emitErrorReply(ctx context.Context, errType common.ErrorType, tag common.ErrorTag, msg string) error {
	trace.ContextTrace(ctx).RPCError(s.id, string(tag), msg)
	if err := s.beginReply(); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("<rpc-error>")
	buf.WriteString("<error-type>")
	buf.WriteString(string(errType))
	buf.WriteString("</error-type>")
	buf.WriteString("<error-tag>")
	buf.WriteString(string(tag))
	buf.WriteString("</error-tag>")
	buf.WriteString("<error-severity>error</error-severity>")
	buf.WriteString("<error-message>")
	_ = xml.EscapeText(&buf, []byte(msg))
	buf.WriteString("</error-message>")
	buf.WriteString("</rpc-error>")
	if err := s.writeRaw(buf.Bytes()); err != nil {
		return err
	}
	return s.closeReply()
}

// emitGetConfigReply writes <rpc-reply>...<data>{running}</data></rpc-reply>.
func (s *Session) emitGetConfigReply() error {
	if err := s.beginReply(); err != nil {
		return err
	}
	if err := s.writeRawString("<data>"); err != nil {
		return err
	}
	running, err := s.running.ReadAll()
	if err != nil {
		return err
	}
	if err := s.writeRaw(trimNUL(running)); err != nil {
		return err
	}
	if err := s.writeRawString("</data>"); err != nil {
		return err
	}
	return s.closeReply()
}

// emitGetReply writes <rpc-reply>...<data>{running}{operational-state}
// </data></rpc-reply>, per spec.md §4.4's Get/Close(get) row.
func (s *Session) emitGetReply() error {
	if err := s.beginReply(); err != nil {
		return err
	}
	if err := s.writeRawString("<data>"); err != nil {
		return err
	}
	running, err := s.running.ReadAll()
	if err != nil {
		return err
	}
	if err := s.writeRaw(trimNUL(running)); err != nil {
		return err
	}
	if err := s.writeRaw(s.operationalStateXML()); err != nil {
		return err
	}
	if err := s.writeRawString("</data>"); err != nil {
		return err
	}
	return s.closeReply()
}

func trimNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

func elemInt(name string, v int) string {
	return fmt.Sprintf("<%s>%d</%s>", name, v, name)
}

func (s *Session) operationalStateXML() []byte {
	var buf bytes.Buffer
	buf.WriteString(elemInt("update", s.dev.LastTempUpdate()))

	t := s.dev.Temperature()
	buf.WriteString(`<temp unit="C">`)
	if t == device.NoTemperature {
		buf.WriteString("N/A")
	} else {
		fmt.Fprintf(&buf, "%d", t)
	}
	buf.WriteString("</temp>")

	buf.WriteString(elemInt("sysUpTime", s.dev.UptimeSeconds()))

	addr := s.dev.GlobalIPv6()
	buf.WriteString("<globalIP>")
	buf.WriteString(formatGlobalIPv6(addr))
	buf.WriteString("</globalIP>")

	c := s.dev.Counters()
	buf.WriteString(elemInt("packetsSent", c.PacketsSent))
	buf.WriteString(elemInt("packetsReceived", c.PacketsReceived))
	buf.WriteString(elemInt("failSent", c.FailSent))
	buf.WriteString(elemInt("failReceived", c.FailReceived))
	buf.WriteString(elemInt("octetsSent", c.OctetsSent))
	buf.WriteString(elemInt("octetsReceived", c.OctetsReceived))
	buf.WriteString(elemInt("mcastSent", c.McastSent))
	buf.WriteString(elemInt("mcastReceived", c.McastReceived))
	return buf.Bytes()
}

// formatGlobalIPv6 renders addr as 8 colon-separated 16-bit hex groups
// bracketed by a leading and trailing space, matching
// netconf-light.c's getOperationalState sprintf format exactly.
func formatGlobalIPv6(addr [16]byte) string {
	var buf bytes.Buffer
	buf.WriteByte(' ')
	for i := 0; i < 8; i++ {
		if i > 0 {
			buf.WriteByte(':')
		}
		fmt.Fprintf(&buf, "%02x%02x", addr[2*i], addr[2*i+1])
	}
	buf.WriteByte(' ')
	return buf.String()
}

// finalizeOutbound reads the completed reply from output, frames it per
// the session's active framing mode and queues it for DrainOutbound.
func (s *Session) finalizeOutbound() error {
	body, err := s.output.ReadAll()
	if err != nil {
		return err
	}
	if err := s.output.Truncate(); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	framed := codec.Frame(body, s.framingModeForCodec(), s.cfg.OutputChunkSize)
	s.outbound = append(s.outbound[s.outPos:], framed...)
	s.outPos = 0
	return nil
}

func (s *Session) framingModeForCodec() codec.FramingMode {
	if s.peerSupportsChunked {
		return codec.Chunked
	}
	return codec.EndOfMessage
}

// HasOutbound reports whether bytes are queued to write to the transport.
func (s *Session) HasOutbound() bool {
	return s.outPos < len(s.outbound)
}

// DrainOutbound returns up to max bytes of the queued reply and whether
// more remains after this call. Each call corresponds to one
// transport-writable suspension point (spec.md §5).
func (s *Session) DrainOutbound(max int) ([]byte, bool) {
	if max <= 0 || s.outPos >= len(s.outbound) {
		return nil, s.outPos < len(s.outbound)
	}
	end := s.outPos + max
	if end > len(s.outbound) {
		end = len(s.outbound)
	}
	chunk := s.outbound[s.outPos:end]
	s.outPos = end
	return chunk, s.outPos < len(s.outbound)
}

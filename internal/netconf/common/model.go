// Package common defines the wire-level message shapes and protocol
// constants shared by the framer, codec and session packages.
package common

import "encoding/xml"

// Namespaces and capability URIs used by the agent.
const (
	NetconfNS = "urn:ietf:params:xml:ns:netconf:base:1.0"

	CapBase10 = "urn:ietf:params:netconf:base:1.0"
	CapBase11 = "urn:ietf:params:netconf:base:1.1"
)

// Define xml names for the messages the agent understands.
var (
	NameHello = xml.Name{Space: NetconfNS, Local: "hello"}
	NameRPC   = xml.Name{Space: NetconfNS, Local: "rpc"}
)

// HelloMessage defines the message exchanged during session negotiation.
// The agent always reports session-id 1: there is only ever one session.
type HelloMessage struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    uint64   `xml:"session-id,omitempty"`
}

// AgentCapabilities is the capability set the agent advertises in its hello.
var AgentCapabilities = []string{CapBase11}

// PeerSupportsChunkedFraming reports whether caps advertises base:1.1,
// which is this agent's only signal to switch to chunked framing.
func PeerSupportsChunkedFraming(caps []string) bool {
	for _, c := range caps {
		if c == CapBase11 {
			return true
		}
	}
	return false
}

// ErrorType is the <error-type> value of an rpc-error.
type ErrorType string

// Error types recognized by the agent.
const (
	ErrTypeApplication ErrorType = "application"
	ErrTypeRPC         ErrorType = "rpc"
	ErrTypeProtocol    ErrorType = "protocol"
)

// ErrorTag is the <error-tag> value of an rpc-error.
type ErrorTag string

// Error tag vocabulary (spec.md §6). OperationNotPermitted keeps the
// original agent's misspelled wire value for compatibility with peers
// built against it; only the Go constant name is spelled correctly.
const (
	ErrTagInUse                ErrorTag = "in-use"
	ErrTagInvalidValue         ErrorTag = "invalid-value"
	ErrTagTooBig               ErrorTag = "too-big"
	ErrTagMissingAttribute     ErrorTag = "missing-attribute"
	ErrTagBadAttribute         ErrorTag = "bad-attribute"
	ErrTagUnknownAttribute     ErrorTag = "unknown-attribute"
	ErrTagMissingElement       ErrorTag = "missing-element"
	ErrTagBadElement           ErrorTag = "bad-element"
	ErrTagUnknownElement       ErrorTag = "unknown-element"
	ErrTagUnknownNamespace     ErrorTag = "unknown-namespace"
	ErrTagAccessDenied         ErrorTag = "access-denied"
	ErrTagLockDenied           ErrorTag = "lock-denied"
	ErrTagOperationNotPermitted ErrorTag = "operation-not-permited"
	ErrTagOperationFailed      ErrorTag = "operation-failed"
)

// ReplyAttr is one echoed attribute triple on an rpc-reply element.
type ReplyAttr struct {
	Prefix string
	Name   string
	Value  string
}

// Package transport provides the plain TCP and TLS listeners the agent's
// core treats as external collaborators (spec.md §6), structured after the
// teacher's v2/netconf/server/ssh.Server (NewServer/acceptConnections) but
// carrying raw bytes instead of SSH channels — TLS selection here is the
// compile-time/flag switch spec.md §6 calls for, not a different protocol.
package transport

import (
	"crypto/tls"
	"net"

	"github.com/pkg/errors"
)

// Conn is a single accepted connection. Plain TCP, TLS and the SSH
// subsystem transport (internal/transport/sshsubsystem) all produce one,
// so the session engine is transport-agnostic.
type Conn interface {
	net.Conn
}

// Listener accepts Conns. Both TCP and TLS listeners in this package, and
// the SSH subsystem listener, satisfy it.
type Listener interface {
	Accept() (Conn, error)
	Close() error
	Addr() net.Addr
}

type tcpListener struct {
	ln net.Listener
}

// NewTCPListener listens for plain stream-socket connections on addr.
func NewTCPListener(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen %s", addr)
	}
	return &tcpListener{ln: ln}, nil
}

func (t *tcpListener) Accept() (Conn, error) {
	c, err := t.ln.Accept()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *tcpListener) Close() error   { return t.ln.Close() }
func (t *tcpListener) Addr() net.Addr { return t.ln.Addr() }

type tlsListener struct {
	ln net.Listener
}

// NewTLSListener listens for TLS connections on addr using the certificate
// and key at certFile/keyFile. Behavior is otherwise identical to a plain
// TCP listener, per spec.md §6's "TLS selection is a compile-time switch".
func NewTLSListener(addr, certFile, keyFile string) (Listener, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, errors.Wrap(err, "transport: load TLS certificate")
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	ln, err := tls.Listen("tcp", addr, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen tls %s", addr)
	}
	return &tlsListener{ln: ln}, nil
}

func (t *tlsListener) Accept() (Conn, error) {
	c, err := t.ln.Accept()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (t *tlsListener) Close() error   { return t.ln.Close() }
func (t *tlsListener) Addr() net.Addr { return t.ln.Addr() }

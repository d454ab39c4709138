// Package sshsubsystem is an optional additional transport carrying the
// "netconf" SSH subsystem channel the way real NETCONF deployments expose
// the protocol, adapted from the teacher's server/ssh package (PasswordConfig,
// host-key generation, NewServer/acceptConnections) so it produces the same
// transport.Conn the plain TCP and TLS listeners do.
package sshsubsystem

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"

	"github.com/netconf-light/agent/internal/transport"
)

// PasswordConfig builds an ssh.ServerConfig authenticating a single
// username/password pair, with a freshly generated RSA host key — adapted
// near-verbatim from the teacher's ssh.PasswordConfig.
func PasswordConfig(uname, password string) (*ssh.ServerConfig, error) {
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == uname && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	hostKey, err := generateHostKey()
	if err != nil {
		return nil, err
	}
	cfg.AddHostKey(hostKey)
	return cfg, nil
}

func generateHostKey() (ssh.Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.Wrap(err, "sshsubsystem: generate host key")
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})
	return ssh.ParsePrivateKey(pemBytes)
}

// Listener accepts "netconf" SSH subsystem channels and hands each back as
// a transport.Conn, so the session engine never knows it isn't plain TCP.
type Listener struct {
	ln     net.Listener
	config *ssh.ServerConfig
	conns  chan transport.Conn
	errs   chan error
}

// NewListener listens on addr and negotiates SSH using config, dispatching
// every accepted "netconf" subsystem channel to Accept's caller.
func NewListener(addr string, config *ssh.ServerConfig) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "sshsubsystem: listen %s", addr)
	}
	l := &Listener{
		ln:     ln,
		config: config,
		conns:  make(chan transport.Conn),
		errs:   make(chan error, 1),
	}
	go l.acceptConnections()
	return l, nil
}

func (l *Listener) acceptConnections() {
	for {
		nConn, err := l.ln.Accept()
		if err != nil {
			l.errs <- err
			return
		}
		go l.handleConn(nConn)
	}
}

func (l *Listener) handleConn(nConn net.Conn) {
	sconn, chans, reqs, err := ssh.NewServerConn(nConn, l.config)
	if err != nil {
		_ = nConn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go l.serveSubsystemRequests(sconn, ch, requests)
	}
}

func (l *Listener) serveSubsystemRequests(sconn *ssh.ServerConn, ch ssh.Channel, requests <-chan *ssh.Request) {
	for req := range requests {
		isNetconf := req.Type == "subsystem" && string(req.Payload[4:]) == "netconf"
		_ = req.Reply(isNetconf, nil)
		if isNetconf {
			l.conns <- &channelConn{Channel: ch, local: sconn.LocalAddr(), remote: sconn.RemoteAddr()}
			return
		}
	}
}

// Accept returns the next established "netconf" subsystem channel.
func (l *Listener) Accept() (transport.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case err := <-l.errs:
		return nil, err
	}
}

func (l *Listener) Close() error   { return l.ln.Close() }
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// channelConn adapts an ssh.Channel (io.ReadWriteCloser with no addresses
// or deadlines) to the full net.Conn transport.Conn requires.
type channelConn struct {
	ssh.Channel
	local, remote net.Addr
}

func (c *channelConn) LocalAddr() net.Addr             { return c.local }
func (c *channelConn) RemoteAddr() net.Addr            { return c.remote }
func (c *channelConn) SetDeadline(time.Time) error      { return nil }
func (c *channelConn) SetReadDeadline(time.Time) error  { return nil }
func (c *channelConn) SetWriteDeadline(time.Time) error { return nil }

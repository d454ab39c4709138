// Command netconfd boots the agent's single listener (TCP, TLS, or the SSH
// "netconf" subsystem) and runs the session supervisor against it, the way
// the teacher's cmd/* binaries parse flags, build a client.Config, and hand
// off to a long-running Serve loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/netconf-light/agent/internal/device"
	"github.com/netconf-light/agent/internal/session"
	"github.com/netconf-light/agent/internal/store"
	"github.com/netconf-light/agent/internal/trace"
	"github.com/netconf-light/agent/internal/transport"
	"github.com/netconf-light/agent/internal/transport/sshsubsystem"
)

func main() {
	var (
		addr       = flag.String("addr", ":830", "listen address")
		tlsCert    = flag.String("tls-cert", "", "TLS certificate file (enables TLS transport)")
		tlsKey     = flag.String("tls-key", "", "TLS key file (enables TLS transport)")
		sshEnabled = flag.Bool("ssh", false, `serve the "netconf" SSH subsystem instead of raw TCP/TLS`)
		sshUser    = flag.String("ssh-user", "admin", "SSH subsystem username")
		sshPass    = flag.String("ssh-pass", "admin", "SSH subsystem password")
		stateDir   = flag.String("state-dir", "", "directory for persistent running-config storage (memory-only if empty)")
		timeout    = flag.Duration("inactivity-timeout", session.DefaultConfig.InactivityTimeout, "session inactivity timeout")
		chunkSize  = flag.Int("output-chunk-size", session.DefaultConfig.OutputChunkSize, "chunked-framing output chunk size")
		diagnostic = flag.Bool("diagnostic-trace", false, "log every trace hook instead of just the default set")
	)
	flag.Parse()

	hooks := trace.DefaultLoggingHooks
	if *diagnostic {
		hooks = trace.DiagnosticLoggingHooks
	}

	cfg := &session.Config{InactivityTimeout: *timeout, OutputChunkSize: *chunkSize}

	running, err := openRunningStream(*stateDir)
	if err != nil {
		log.Fatalf("netconfd: %v", err)
	}
	defer running.Close()

	sv := session.NewSupervisor(cfg, device.Null{}, running)

	ln, err := openListener(*addr, *tlsCert, *tlsKey, *sshEnabled, *sshUser, *sshPass)
	if err != nil {
		log.Fatalf("netconfd: %v", err)
	}
	defer ln.Close()

	log.Printf("netconfd: listening on %s", ln.Addr())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = trace.WithTrace(ctx, hooks)

	if err := transport.Serve(ctx, ln, sv); err != nil {
		log.Fatalf("netconfd: serve: %v", err)
	}
}

func openRunningStream(stateDir string) (store.ByteStream, error) {
	if stateDir == "" {
		return store.NewMemStream(), nil
	}
	return store.NewFileStream(stateDir, "running-config")
}

func openListener(addr, tlsCert, tlsKey string, sshEnabled bool, sshUser, sshPass string) (transport.Listener, error) {
	if sshEnabled {
		config, err := sshsubsystem.PasswordConfig(sshUser, sshPass)
		if err != nil {
			return nil, fmt.Errorf("ssh subsystem config: %w", err)
		}
		return asTransportListener(sshsubsystem.NewListener(addr, config))
	}
	if tlsCert != "" || tlsKey != "" {
		return transport.NewTLSListener(addr, tlsCert, tlsKey)
	}
	return transport.NewTCPListener(addr)
}

// asTransportListener adapts *sshsubsystem.Listener, which already
// satisfies transport.Listener structurally, into the interface value —
// keeping the sshsubsystem import confined to this file.
func asTransportListener(l *sshsubsystem.Listener, err error) (transport.Listener, error) {
	if err != nil {
		return nil, err
	}
	return l, nil
}

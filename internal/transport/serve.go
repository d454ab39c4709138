// Serve wires a Listener to a session.Supervisor: each accepted
// connection gets its own goroutine running the cooperative event loop of
// spec.md §5 (DataIn, Writable, Timeout, Closed) against its own Session
// value, mirroring the teacher's one-goroutine-per-connection
// acceptConnections shape while keeping every individual Session free of
// concurrent access, as the single-threaded protocol engine requires.
package transport

import (
	"context"
	"time"

	"github.com/netconf-light/agent/internal/session"
)

// pollInterval is how often a connection's goroutine checks for inactivity
// timeout and drains any queued outbound bytes; this stands in for the
// event-driven Writable/Timeout signals a real poller would deliver.
const pollInterval = 200 * time.Millisecond

// Serve accepts connections from ln until ctx is canceled or Accept fails,
// handing each to sv. It blocks until the listener stops accepting.
func Serve(ctx context.Context, ln Listener, sv *session.Supervisor) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}
		go handleConn(ctx, conn, sv)
	}
}

func handleConn(ctx context.Context, conn Conn, sv *session.Supervisor) {
	defer conn.Close()

	s, err := sv.Accept()
	if err != nil {
		// At-most-one session: refuse without touching existing state.
		return
	}
	defer sv.Release(s)

	hello := s.Open(ctx, remoteAddrString(conn))
	if len(hello) > 0 {
		if _, err := conn.Write(hello); err != nil {
			s.Closed(ctx, err)
			return
		}
	}

	readErrCh := make(chan error, 1)
	dataCh := make(chan []byte, 1)
	go readLoop(conn, dataCh, readErrCh)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := drainOutbound(conn, s); err != nil {
			s.Closed(ctx, err)
			return
		}
		if s.ShouldClose() {
			s.Closed(ctx, nil)
			return
		}

		select {
		case data := <-dataCh:
			if err := s.DataIn(ctx, data); err != nil {
				s.Closed(ctx, err)
				return
			}
		case err := <-readErrCh:
			_ = drainOutbound(conn, s)
			s.Closed(ctx, err)
			return
		case now := <-ticker.C:
			if s.CheckTimeout(ctx, now) {
				_ = drainOutbound(conn, s)
				s.Closed(ctx, nil)
				return
			}
		case <-ctx.Done():
			s.Closed(ctx, ctx.Err())
			return
		}
	}
}

func drainOutbound(conn Conn, s *session.Session) error {
	for s.HasOutbound() {
		chunk, _ := s.DrainOutbound(4096)
		if len(chunk) == 0 {
			break
		}
		if _, err := conn.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

func readLoop(conn Conn, dataCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			dataCh <- chunk
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func remoteAddrString(conn Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}


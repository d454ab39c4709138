// Package trace defines the hook-struct logging pattern used throughout
// this agent, grounded on the teacher's v2/netconf/server/netconf/trace.go
// and server/ssh/trace.go: a Trace struct of named func fields, injected
// through context.Context, merged against a no-op default with
// github.com/imdario/mergo so callers only need to set the hooks they care
// about. There is no logrus/zap here because the teacher has none either —
// every hook bottoms out in the standard log package.
package trace

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/imdario/mergo"
)

// unique type to prevent assignment from outside the package.
type traceContextKey struct{}

// Trace is the set of events the session, framer and transport layers
// report. Fields left nil are no-ops.
type Trace struct {
	ConnAccepted func(id uuid.UUID, remote string)
	ConnClosed   func(id uuid.UUID, err error)
	ClientHello  func(id uuid.UUID, caps []string)
	FramingError func(id uuid.UUID, err error)
	RPCDispatch  func(id uuid.UUID, op string)
	RPCError     func(id uuid.UUID, tag string, msg string)
	LockChanged  func(id uuid.UUID, locked bool)
	ConfigWrite  func(id uuid.UUID, bytes int)
	Timeout      func(id uuid.UUID, last time.Time)
}

// ContextTrace returns the Trace attached to ctx, merged over NoOp so every
// field is callable without a nil check. If none is attached, NoOp itself
// is returned.
func ContextTrace(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceContextKey{}).(*Trace)
	if t == nil {
		return NoOp
	}
	merged := *t
	_ = mergo.Merge(&merged, *NoOp)
	return &merged
}

// WithTrace returns a context carrying trace, for hooks installed by the
// caller to fire on every subsequent session/framer/transport event
// processed with it.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, t)
}

// NoOp does nothing for every hook; it is the base every other hook set is
// merged against so unset fields never panic.
var NoOp = &Trace{
	ConnAccepted: func(uuid.UUID, string) {},
	ConnClosed:   func(uuid.UUID, error) {},
	ClientHello:  func(uuid.UUID, []string) {},
	FramingError: func(uuid.UUID, error) {},
	RPCDispatch:  func(uuid.UUID, string) {},
	RPCError:     func(uuid.UUID, string, string) {},
	LockChanged:  func(uuid.UUID, bool) {},
	ConfigWrite:  func(uuid.UUID, int) {},
	Timeout:      func(uuid.UUID, time.Time) {},
}

// DefaultLoggingHooks reports errors and lifecycle events via log.Printf,
// the way the teacher's DefaultLoggingHooks reports only failures.
var DefaultLoggingHooks = &Trace{
	ConnAccepted: func(id uuid.UUID, remote string) {
		log.Printf("conn %s accepted from %s\n", id, remote)
	},
	ConnClosed: func(id uuid.UUID, err error) {
		if err != nil {
			log.Printf("conn %s closed error:%v\n", id, err)
		}
	},
	FramingError: func(id uuid.UUID, err error) {
		log.Printf("conn %s framing error:%v\n", id, err)
	},
	RPCError: func(id uuid.UUID, tag, msg string) {
		log.Printf("conn %s rpc-error tag:%s message:%s\n", id, tag, msg)
	},
}

// DiagnosticLoggingHooks reports every hook unconditionally, for
// troubleshooting a live session, mirroring the teacher's
// DiagnosticLoggingHooks intent.
var DiagnosticLoggingHooks = &Trace{
	ConnAccepted: func(id uuid.UUID, remote string) {
		log.Printf("conn %s accepted from %s\n", id, remote)
	},
	ConnClosed: func(id uuid.UUID, err error) {
		log.Printf("conn %s closed error:%v\n", id, err)
	},
	ClientHello: func(id uuid.UUID, caps []string) {
		log.Printf("conn %s hello capabilities:%v\n", id, caps)
	},
	FramingError: func(id uuid.UUID, err error) {
		log.Printf("conn %s framing error:%v\n", id, err)
	},
	RPCDispatch: func(id uuid.UUID, op string) {
		log.Printf("conn %s dispatch op:%s\n", id, op)
	},
	RPCError: func(id uuid.UUID, tag, msg string) {
		log.Printf("conn %s rpc-error tag:%s message:%s\n", id, tag, msg)
	},
	LockChanged: func(id uuid.UUID, locked bool) {
		log.Printf("conn %s lock:%v\n", id, locked)
	},
	ConfigWrite: func(id uuid.UUID, bytes int) {
		log.Printf("conn %s config write bytes:%d\n", id, bytes)
	},
	Timeout: func(id uuid.UUID, last time.Time) {
		log.Printf("conn %s inactivity timeout, last event:%s\n", id, last)
	},
}

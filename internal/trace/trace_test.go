package trace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNoOpHooksAreSafeToCall(t *testing.T) {
	id := uuid.New()
	NoOp.ConnAccepted(id, "127.0.0.1:1234")
	NoOp.ConnClosed(id, errors.New("failed"))
	NoOp.ClientHello(id, []string{"urn:ietf:params:netconf:base:1.1"})
	NoOp.FramingError(id, errors.New("failed"))
	NoOp.RPCDispatch(id, "get")
	NoOp.RPCError(id, "bad-element", "invalid tag")
	NoOp.LockChanged(id, true)
	NoOp.ConfigWrite(id, 42)
	NoOp.Timeout(id, time.Unix(0, 0))
}

func TestDefaultLoggingHooksForUntestableExceptions(t *testing.T) {
	id := uuid.New()
	DefaultLoggingHooks.ConnAccepted(id, "127.0.0.1:1234")
	DefaultLoggingHooks.ConnClosed(id, errors.New("failed"))
	DefaultLoggingHooks.FramingError(id, errors.New("failed"))
	DefaultLoggingHooks.RPCError(id, "bad-element", "invalid tag")
}

func TestDiagnosticLoggingHooksForUntestableExceptions(t *testing.T) {
	id := uuid.New()
	DiagnosticLoggingHooks.ConnAccepted(id, "127.0.0.1:1234")
	DiagnosticLoggingHooks.ConnClosed(id, errors.New("failed"))
	DiagnosticLoggingHooks.ClientHello(id, []string{"urn:ietf:params:netconf:base:1.1"})
	DiagnosticLoggingHooks.FramingError(id, errors.New("failed"))
	DiagnosticLoggingHooks.RPCDispatch(id, "get")
	DiagnosticLoggingHooks.RPCError(id, "bad-element", "invalid tag")
	DiagnosticLoggingHooks.LockChanged(id, true)
	DiagnosticLoggingHooks.ConfigWrite(id, 42)
	DiagnosticLoggingHooks.Timeout(id, time.Unix(0, 0))
}

func TestContextTraceReturnsNoOpWhenUnset(t *testing.T) {
	got := ContextTrace(context.Background())
	assert.NotNil(t, got.ConnAccepted)
}

func TestContextTraceMergesAgainstNoOp(t *testing.T) {
	var helloCalled bool
	partial := &Trace{
		ClientHello: func(uuid.UUID, []string) { helloCalled = true },
	}
	ctx := WithTrace(context.Background(), partial)

	got := ContextTrace(ctx)
	got.ClientHello(uuid.New(), nil)
	assert.True(t, helloCalled)

	assert.NotPanics(t, func() {
		got.ConnAccepted(uuid.New(), "addr")
	})
}

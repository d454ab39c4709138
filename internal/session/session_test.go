package session

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netconf-light/agent/internal/device"
	"github.com/netconf-light/agent/internal/store"
)

type fakeDevice struct {
	shown string
}

func (f *fakeDevice) ShowText(s string) error         { f.shown = s; return nil }
func (f *fakeDevice) Temperature() int                { return device.NoTemperature }
func (f *fakeDevice) LastTempUpdate() int              { return 0 }
func (f *fakeDevice) UptimeSeconds() int               { return 42 }
func (f *fakeDevice) GlobalIPv6() [16]byte             { return [16]byte{} }
func (f *fakeDevice) Counters() device.Counters        { return device.Counters{} }

func newTestSession(dev device.Device) *Session {
	if dev == nil {
		dev = &fakeDevice{}
	}
	running := store.NewMemStream()
	return New(DefaultConfig, dev, running, uuid.New())
}

func drainAll(t *testing.T, s *Session) string {
	t.Helper()
	var out []byte
	for s.HasOutbound() {
		chunk, _ := s.DrainOutbound(4096)
		out = append(out, chunk...)
	}
	return string(out)
}

const helloEOM = `<?xml version='1.0' encoding='UTF-8'?><hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities><capability>urn:ietf:params:netconf:base:1.0</capability></capabilities></hello>]]>]]>`

func TestScenarioHelloAndCloseSession(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)

	hello := s.Open(ctx, "127.0.0.1:1234")
	assert.Contains(t, string(hello), "<hello")

	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))
	assert.Equal(t, RcvdHello, s.State())

	req := `<rpc message-id="1" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><close-session/></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(req)))

	reply := drainAll(t, s)
	assert.Contains(t, reply, `<rpc-reply message-id="1"`)
	assert.Contains(t, reply, "<ok/>")
	assert.True(t, strings.HasSuffix(reply, "]]>]]>"))
	assert.True(t, s.ShouldClose())
}

func TestScenarioChunkedGetConfig(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "127.0.0.1:1234")

	peerHello := `<?xml version='1.0' encoding='UTF-8'?><hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><capabilities><capability>urn:ietf:params:netconf:base:1.1</capability></capabilities></hello>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(peerHello)))
	assert.True(t, s.peerSupportsChunked)

	body := `<?xml version='1.0' encoding='UTF-8'?><rpc message-id="101" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><get-config><source><running/></source></get-config></rpc>`
	frame := "\n#" + itoa(len(body)) + "\n" + body + "\n##\n"
	require.NoError(t, s.DataIn(ctx, []byte(frame)))

	reply := drainAll(t, s)
	assert.True(t, strings.HasPrefix(reply, "\n#"))
	assert.Contains(t, reply, `<rpc-reply message-id="101"`)
	assert.Contains(t, reply, "<data>")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestScenarioCopyConfigRecognized(t *testing.T) {
	ctx := context.Background()
	dev := &fakeDevice{}
	s := newTestSession(dev)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	req := `<rpc message-id="101" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><copy-config><target><running/></target><source><config><lcd>hello world</lcd><name>Steve</name><location>here</location></config></source></copy-config></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(req)))

	reply := drainAll(t, s)
	assert.Contains(t, reply, "<ok/>")
	assert.Equal(t, "hello world", dev.shown)

	running, err := s.running.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "<lcd>hello world</lcd><name>Steve</name><location>here</location>\x00", string(running))
}

func TestScenarioCopyConfigUnrecognized(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	req := `<rpc message-id="101" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><copy-config><target><running/></target><source><config><lfd>hello world</lfd></config></source></copy-config></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(req)))

	reply := drainAll(t, s)
	assert.Contains(t, reply, "<error-type>rpc</error-type>")
	assert.Contains(t, reply, "<error-tag>bad-element</error-tag>")
	assert.Contains(t, reply, "invalid config")

	assert.Equal(t, 0, s.running.Len())
}

func TestScenarioDoubleLock(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	lockReq := `<rpc message-id="1" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><lock><target><running/></target></lock></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(lockReq)))
	first := drainAll(t, s)
	assert.Contains(t, first, "<ok/>")
	assert.True(t, s.locked)

	require.NoError(t, s.DataIn(ctx, []byte(strings.Replace(lockReq, `message-id="1"`, `message-id="2"`, 1))))
	second := drainAll(t, s)
	assert.Contains(t, second, "<error-tag>lock-denied</error-tag>")
	assert.Contains(t, second, "lock already taken")
}

func TestScenarioGet(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	getReq := `<rpc message-id="1" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><get/></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(getReq)))

	reply := drainAll(t, s)
	assert.Contains(t, reply, "<data>")
	assert.Contains(t, reply, "<sysUpTime>42</sysUpTime>")
	assert.Contains(t, reply, `<temp unit="C">N/A</temp>`)
}

func TestLockSymmetry(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	ok, _ := s.applyLock(ctx, true)
	assert.True(t, ok)
	assert.True(t, s.locked)

	ok, msg := s.applyLock(ctx, true)
	assert.False(t, ok)
	assert.Equal(t, "lock already taken", msg)

	ok, _ = s.applyLock(ctx, false)
	assert.True(t, ok)
	assert.False(t, s.locked)

	ok, msg = s.applyLock(ctx, false)
	assert.False(t, ok)
	assert.Equal(t, "lock not held", msg)
}

func TestSupervisorRefusesSecondSession(t *testing.T) {
	sv := NewSupervisor(DefaultConfig, &fakeDevice{}, store.NewMemStream())
	first, err := sv.Accept()
	require.NoError(t, err)
	require.NotNil(t, first)

	_, err = sv.Accept()
	assert.ErrorIs(t, err, ErrSecondSession)

	sv.Release(first)
	second, err := sv.Accept()
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func TestErrorIsTerminalForDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	req := `<rpc message-id="1" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><bogus-op/></rpc>]]>]]>`
	require.NoError(t, s.DataIn(ctx, []byte(req)))

	reply := drainAll(t, s)
	assert.Contains(t, reply, "<error-tag>unknown-element</error-tag>")
	assert.False(t, s.locked)
	assert.Equal(t, 0, s.running.Len())
}

func TestMalformedXMLYieldsRPCErrorNotConnectionTeardown(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(nil)
	s.Open(ctx, "addr")
	require.NoError(t, s.DataIn(ctx, []byte(helloEOM)))

	// Mismatched close tag: well-framed (complete ]]>]]> sentinel), but
	// not well-formed XML.
	req := `<rpc message-id="1" xmlns="urn:ietf:params:xml:ns:netconf:base:1.0"><get></rpc>]]>]]>`
	err := s.DataIn(ctx, []byte(req))
	require.NoError(t, err, "a malformed document must never surface as a Go error from DataIn")

	reply := drainAll(t, s)
	assert.Contains(t, reply, "<error-tag>operation-failed</error-tag>")
	assert.Contains(t, reply, "malformed xml")
	assert.True(t, s.ShouldClose())
}

package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/netconf-light/agent/internal/device"
	"github.com/netconf-light/agent/internal/store"
)

// Supervisor enforces spec.md §3's "Only one session may be connected at
// any time" invariant across accepted connections, and owns the one
// persistent running-configuration stream shared across reconnects. It is
// the process-wide analogue of netconf-light.c's single global session.
type Supervisor struct {
	cfg     *Config
	dev     device.Device
	running store.ByteStream

	mu      sync.Mutex
	current *Session
}

// NewSupervisor creates a Supervisor backed by running, the durable
// configuration stream, and dev, the local actuator/sensor interface.
func NewSupervisor(cfg *Config, dev device.Device, running store.ByteStream) *Supervisor {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if dev == nil {
		dev = device.Null{}
	}
	return &Supervisor{cfg: cfg, dev: dev, running: running}
}

// Accept admits a new connection as a Session, or refuses it with
// ErrSecondSession if one is already connected — the caller must close the
// new transport without touching any session state, per the "At-most-one
// session" testable property.
func (sv *Supervisor) Accept() (*Session, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.current != nil {
		return nil, ErrSecondSession
	}
	s := New(sv.cfg, sv.dev, sv.running, uuid.New())
	sv.current = s
	return s, nil
}

// Release clears the current session slot once its transport has closed,
// permitting a future connection to be accepted.
func (sv *Supervisor) Release(s *Session) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.current == s {
		sv.current = nil
	}
}

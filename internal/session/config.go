package session

import "time"

// Config defines properties that configure agent session behaviour,
// matching the teacher's client.Config shape of exported fields plus a
// DefaultConfig.
type Config struct {
	// InactivityTimeout is how long the session waits for any transport
	// event before tearing itself down. The source agent hard-codes 30s.
	InactivityTimeout time.Duration
	// OutputChunkSize is the chunk payload size used when framing a reply
	// in chunked mode. The source agent hard-codes 100 bytes.
	OutputChunkSize int
}

// DefaultConfig matches the source agent's hard-coded constants, exposed
// here as overridable defaults.
var DefaultConfig = &Config{
	InactivityTimeout: 30 * time.Second,
	OutputChunkSize:   100,
}

// Package device abstracts the small set of local actuators and sensors an
// operational-state <get> reply reports, grounded on original_source's
// raven_lcd_show_text/getTemperature/getSysUpTime/getGlobalIP6Address and
// the getSent*/getReceived*/getFail* counter accessors, exposed here as the
// narrow Device interface the session's get handler and copy-config's
// <lcd> handling query only at the moment they need a value (spec.md §1,
// "queried through a narrow interface at GET time").
package device

// NoTemperature is the sentinel Temperature reports when no sensor reading
// has ever been taken, matching the source agent's -100.
const NoTemperature = -100

// Counters are the interface packet/octet/multicast statistics reported
// under the operational-state block, named after the source agent's
// getSentPackets/getReceivedPackets/getFailSent/getFailReceived/
// getSentOctets/getReceivedOctets/getSentMcastPackets/
// getReceivedMcastPackets accessors.
type Counters struct {
	PacketsSent     int
	PacketsReceived int
	FailSent        int
	FailReceived    int
	OctetsSent      int
	OctetsReceived  int
	McastSent       int
	McastReceived   int
}

// Device is the local state a <get> reply may include, and the target of
// a copy-config's <lcd> element. All methods are called synchronously and
// must not block.
type Device interface {
	// ShowText writes s to the local display.
	ShowText(s string) error
	// Temperature returns the last sampled temperature in whole degrees
	// Celsius, or NoTemperature if no reading has been taken.
	Temperature() int
	// LastTempUpdate returns the uptime, in seconds, at which Temperature
	// was last sampled.
	LastTempUpdate() int
	// UptimeSeconds returns seconds since the agent process started.
	UptimeSeconds() int
	// GlobalIPv6 returns the device's global IPv6 address, 16 zero bytes
	// if none is configured.
	GlobalIPv6() [16]byte
	// Counters returns the current interface counters.
	Counters() Counters
}

// Null is a Device with no attached sensors: ShowText discards its input,
// Temperature reports NoTemperature, and every counter is zero. It is the
// default used when the agent is not wired to real hardware, letting the
// agent run headless in tests and on hosts without the AVR peripherals the
// source agent assumed.
type Null struct{}

func (Null) ShowText(string) error { return nil }

func (Null) Temperature() int { return NoTemperature }

func (Null) LastTempUpdate() int { return 0 }

func (Null) UptimeSeconds() int { return 0 }

func (Null) GlobalIPv6() [16]byte { return [16]byte{} }

func (Null) Counters() Counters { return Counters{} }

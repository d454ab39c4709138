package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullDevice(t *testing.T) {
	var d Device = Null{}

	assert.NoError(t, d.ShowText("hello"))
	assert.Equal(t, NoTemperature, d.Temperature())
	assert.Equal(t, 0, d.LastTempUpdate())
	assert.Equal(t, 0, d.UptimeSeconds())
	assert.Equal(t, [16]byte{}, d.GlobalIPv6())
	assert.Equal(t, Counters{}, d.Counters())
}

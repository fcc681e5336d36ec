package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettingsDefaults(t *testing.T) {
	s := Settings{}.withDefaults()
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettingsKeepExplicitValues(t *testing.T) {
	s := Settings{
		HandshakeTimeout: time.Second,
		SendBuffer:       8,
	}.withDefaults()

	assert.Equal(t, time.Second, s.HandshakeTimeout)
	assert.Equal(t, 8, s.SendBuffer)
	assert.Equal(t, DefaultSettings().ReadTimeout, s.ReadTimeout)
	assert.Equal(t, DefaultSettings().PingInterval, s.PingInterval)
}

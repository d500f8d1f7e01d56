package livesync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffResetsAfterHealthySession(t *testing.T) {
	// A flap after hours of streaming must not inherit the ceiling built up
	// during an earlier outage.
	assert.Equal(t, reconnectBase, nextBackoff(reconnectMax, time.Hour))
	assert.Equal(t, reconnectBase, nextBackoff(4*time.Second, 5*time.Second))
}

func TestNextBackoffHoldsThroughRapidFlaps(t *testing.T) {
	// Sessions shorter than the pending delay keep the ladder where it is;
	// the caller doubles it after waiting.
	assert.Equal(t, 8*time.Second, nextBackoff(8*time.Second, 100*time.Millisecond))
	assert.Equal(t, reconnectBase, nextBackoff(reconnectBase, 0))
}

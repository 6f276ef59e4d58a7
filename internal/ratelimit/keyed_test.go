package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedWindowLimiter_AllowsUpToBurst(t *testing.T) {
	l := NewKeyedWindowLimiter(100, 3)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestKeyedWindowLimiter_KeysAreIndependent(t *testing.T) {
	l := NewKeyedWindowLimiter(100, 1)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))
	assert.False(t, l.Allow("1.1.1.1"))
}

func TestKeyedWindowLimiter_RefillsAfterInterval(t *testing.T) {
	l := NewKeyedWindowLimiter(1000, 1)
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Allow("1.1.1.1"))
}

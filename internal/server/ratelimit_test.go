package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScopeLimiter_Sweep(t *testing.T) {
	l := newScopeLimiter(1, 1, time.Hour)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	l.sweep(time.Now().Add(2 * time.Hour))
	l.mu.Lock()
	assert.Empty(t, l.limiters)
	l.mu.Unlock()

	assert.True(t, l.Allow("a"), "a forgotten scope starts with a full bucket")
	l.Stop()
}

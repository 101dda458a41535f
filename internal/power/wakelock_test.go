package power

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestManager() *Manager {
	l := zerolog.New(io.Discard)
	return NewManager(&l)
}

func TestWakeLock_AcquireRelease(t *testing.T) {
	m := newTestManager()
	wl := m.NewWakeLock("test:lock")

	assert.False(t, wl.IsHeld())
	wl.Acquire(time.Minute)
	assert.True(t, wl.IsHeld())
	assert.Equal(t, 1, m.Held("test:lock"))

	wl.Acquire(time.Minute)
	assert.Equal(t, 1, m.Held("test:lock"), "re-acquire extends, never stacks")

	wl.Release()
	assert.False(t, wl.IsHeld())
	assert.False(t, m.AnyHeld())

	wl.Release()
	assert.Equal(t, 0, m.Held("test:lock"))
}

func TestWakeLock_ExpiresAfterTimeout(t *testing.T) {
	m := newTestManager()
	wl := m.NewWakeLock("test:lock")

	wl.Acquire(20 * time.Millisecond)
	assert.Eventually(t, func() bool { return !wl.IsHeld() }, time.Second, 5*time.Millisecond)
	assert.False(t, m.AnyHeld())
}

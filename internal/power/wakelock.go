// Package power keeps the process from being treated as idle while
// short-lived work runs.
package power

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager hands out wake locks and tracks how many are held.
type Manager struct {
	mu     sync.Mutex
	held   map[string]int
	logger *zerolog.Logger
}

func NewManager(logger *zerolog.Logger) *Manager {
	return &Manager{held: make(map[string]int), logger: logger}
}

// NewWakeLock creates a lock with the given tag. It is not held yet.
func (m *Manager) NewWakeLock(tag string) *WakeLock {
	return &WakeLock{manager: m, tag: tag}
}

// Held returns the number of locks currently held for tag.
func (m *Manager) Held(tag string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[tag]
}

// AnyHeld reports whether any wake lock is held.
func (m *Manager) AnyHeld() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.held {
		if n > 0 {
			return true
		}
	}
	return false
}

func (m *Manager) inc(tag string) {
	m.mu.Lock()
	m.held[tag]++
	m.mu.Unlock()
}

func (m *Manager) dec(tag string) {
	m.mu.Lock()
	if m.held[tag] > 0 {
		m.held[tag]--
	}
	m.mu.Unlock()
}

// WakeLock is a bounded hold: it releases itself after the timeout even if
// the owner never calls Release.
type WakeLock struct {
	manager *Manager
	tag     string

	mu    sync.Mutex
	held  bool
	timer *time.Timer
}

// Acquire holds the lock for at most timeout. Acquiring a held lock
// only extends it.
func (w *WakeLock) Acquire(timeout time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	if !w.held {
		w.held = true
		w.manager.inc(w.tag)
	}
	w.timer = time.AfterFunc(timeout, func() {
		if w.release() {
			w.manager.logger.Warn().Str("tag", w.tag).Dur("timeout", timeout).Msg("wake lock expired before release")
		}
	})
}

// Release drops the lock. Releasing a lock that is not held is a no-op.
func (w *WakeLock) Release() {
	w.release()
}

// IsHeld reports whether the lock is currently held.
func (w *WakeLock) IsHeld() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.held
}

func (w *WakeLock) release() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.held {
		return false
	}
	w.held = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.manager.dec(w.tag)
	return true
}

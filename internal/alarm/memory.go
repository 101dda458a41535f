package alarm

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRegistry keeps registrations in process memory.
type MemoryRegistry struct {
	mu   sync.Mutex
	regs map[string]Registration
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{regs: make(map[string]Registration)}
}

func (m *MemoryRegistry) Put(_ context.Context, r Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[r.Token] = r
	return nil
}

func (m *MemoryRegistry) Remove(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regs, token)
	return nil
}

func (m *MemoryRegistry) Get(_ context.Context, token string) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[token]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryRegistry) List(_ context.Context) ([]Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Registration, 0, len(m.regs))
	for _, r := range m.regs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

func (m *MemoryRegistry) Take(_ context.Context, token string, fireAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[token]
	if !ok || !r.FireAt.Equal(fireAt) {
		return false, nil
	}
	delete(m.regs, token)
	return true, nil
}

func (m *MemoryRegistry) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = make(map[string]Registration)
	return nil
}

// Count returns the number of pending registrations.
func (m *MemoryRegistry) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

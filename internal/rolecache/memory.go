package rolecache

import (
	"context"
	"sync"
	"time"

	"feedback-hub/internal/models"
)

type entry struct {
	role      models.Role
	expiresAt time.Time
	timer     Timer
}

// Memory is an in-process cache. Each Put schedules the entry's removal after
// the TTL and Get refuses entries past their expiry even if the removal has
// not run yet.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]*entry
}

func NewMemory(ttl time.Duration, clock Clock) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Memory{ttl: ttl, clock: clock, entries: make(map[string]*entry)}
}

func (m *Memory) Put(_ context.Context, userID string, role models.Role) {
	if userID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[userID]; ok && old.timer != nil {
		old.timer.Stop()
	}
	e := &entry{role: role, expiresAt: m.clock.Now().Add(m.ttl)}
	e.timer = m.clock.AfterFunc(m.ttl, func() { m.evict(userID, e) })
	m.entries[userID] = e
}

func (m *Memory) Get(_ context.Context, userID string) (models.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userID]
	if !ok {
		return "", false
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, userID)
		return "", false
	}
	return e.role, true
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evict removes userID only if it still points at e; a newer Put wins.
func (m *Memory) evict(userID string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[userID]; ok && cur == e {
		delete(m.entries, userID)
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	resetAt time.Time
	count   int64
}

// Memory is an in-process Store. A background janitor drops expired windows.
type Memory struct {
	windows map[string]*window
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
}

// NewMemory creates a Memory store. cleanup sets the janitor interval;
// zero disables it.
func NewMemory(cleanup time.Duration) *Memory {
	m := &Memory{
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	if cleanup > 0 {
		go m.janitor(cleanup)
	}
	return m
}

func (m *Memory) Increment(_ context.Context, key string, d time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, time.Time{}, ErrClosed
	}

	now := time.Now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Len returns the number of tracked keys, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// Close stops the janitor. Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

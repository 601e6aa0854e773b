package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the minimal keyed store the loaders sit on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically evicts expired entries from registered caches.
type Manager struct {
	caches []namedCleaner
	done   chan struct{}
	cancel context.CancelFunc
}

type namedCleaner struct {
	name string
	c    Cleaner
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds a cache to the sweep. It must be called before Start.
func (m *Manager) Register(name string, c Cleaner) {
	m.caches = append(m.caches, namedCleaner{name: name, c: c})
}

// Start runs the sweep every interval until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.done != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.run(ctx, interval)
}

func (m *Manager) run(ctx context.Context, interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep evicts expired entries once and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	total := 0
	for _, nc := range m.caches {
		n := nc.c.CleanExpired()
		if n > 0 {
			slog.DebugContext(ctx, "Evicted expired cache entries", "cache", nc.name, "evicted", n)
		}
		total += n
	}
	return total
}

// Stop ends the sweep and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
}

package cache

import (
	"context"
	"sync"
	"time"

	"finreport/internal/log"
)

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches on a fixed interval.
type Manager struct {
	logger *log.Logger

	mu     sync.Mutex
	caches []Cleaner
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup launches the sweeper. Only the first call with a positive
// interval has an effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.sweep(ctx, interval, m.done)
}

func (m *Manager) sweep(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Evicted expired cache entries", "evicted", n)
			}
		}
	}
}

// CleanAll sweeps every registered cache once and returns the evicted count.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	n := 0
	for _, c := range caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop ends the sweeper and waits for it. It may be called repeatedly, and
// before StartCleanup.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

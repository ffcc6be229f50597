package session

import (
	"context"
	"sync"
	"time"

	"doemais/services/auth"
	"doemais/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long an idle session lives when no TTL is configured.
const DefaultTTL = 30 * time.Minute

var ErrNotFound = utils.NotFoundError("session not found")

// Manager keeps the open stores by id and closes idle ones.
type Manager struct {
	auth   auth.AuthService
	search Searcher
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	stores map[string]*Store
}

func NewManager(authSvc auth.AuthService, search Searcher, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		auth:   authSvc,
		search: search,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		stores: make(map[string]*Store),
	}
}

// Open creates a store, starts its auth check with token and registers it.
func (m *Manager) Open(ctx context.Context, token string) (*Store, error) {
	s := NewStore(uuid.NewString(), m.auth, m.search, m.logger)
	s.now = m.now
	if err := s.Init(ctx, token); err != nil {
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	m.stores[s.id] = s
	m.mu.Unlock()
	m.logger.Debug("Session opened", zap.String("session", s.id))
	return s, nil
}

func (m *Manager) Get(id string) (*Store, error) {
	m.mu.RLock()
	s, ok := m.stores[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.stores[id]
	delete(m.stores, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stores)
}

// sweep closes stores idle for longer than the TTL and returns how many it closed.
func (m *Manager) sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var idle []*Store
	for id, s := range m.stores {
		if s.LastActivity().Before(cutoff) {
			idle = append(idle, s)
			delete(m.stores, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx ends, then closes every store.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Info("Closed idle sessions", zap.Int("count", n), zap.Int("open", m.Len()))
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	stores := m.stores
	m.stores = make(map[string]*Store)
	m.mu.Unlock()
	for _, s := range stores {
		s.Close()
	}
}

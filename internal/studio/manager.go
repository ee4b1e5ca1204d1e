package studio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/design"
	"github.com/arawak/thankyou/internal/search"
	"github.com/arawak/thankyou/internal/store"
)

// Manager owns the live sessions of the server.
type Manager struct {
	provider search.Provider
	composer card.Composer
	index    store.Index
	debounce time.Duration
	logger   *slog.Logger

	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithDebounce(d time.Duration) Option {
	return func(m *Manager) {
		m.debounce = d
	}
}

// WithSessionTTL evicts sessions that have not been looked up for d.
// Zero disables eviction.
func WithSessionTTL(d time.Duration) Option {
	return func(m *Manager) {
		m.ttl = d
	}
}

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		m.maxSessions = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(ctx context.Context, p search.Provider, c card.Composer, idx store.Index, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		provider: p,
		composer: c,
		index:    idx,
		debounce: search.DefaultDebounce,
		logger:   slog.Default(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.index == nil {
		m.index = store.NewMemory()
	}
	if m.ttl > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	return m
}

// Create opens a session and starts its initial random fetch.
func (m *Manager) Create() (*Session, error) {
	if m.full() {
		m.Sweep()
		if m.full() {
			return nil, ErrTooManySessions
		}
	}

	now := m.now()
	s := &Session{
		ID:      uuid.NewString(),
		Created: now.UTC(),
		index:   m.index,
		logger:  m.logger,
		font:    design.Fonts[0],
		color:   design.Colors[0],
	}
	s.search = search.New(m.ctx, m.provider,
		search.WithDebounce(m.debounce),
		search.WithLogger(m.logger.With("session", s.ID)),
	)
	s.preview = card.NewPreview(m.ctx, m.composer, card.WithPreviewLogger(m.logger.With("session", s.ID)))
	s.search.Subscribe(func(st search.State) {
		if !st.Loading {
			s.remember(st)
		}
	})

	if err := s.search.Start(); err != nil {
		s.close()
		return nil, err
	}

	s.touch(now)

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		s.close()
		return nil, ErrTooManySessions
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session created", "session", s.ID)
	return s, nil
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	m.logger.Info("session closed", "session", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
// were evicted.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		m.logger.Info("session expired", "session", s.ID, "last_used", s.LastUsed())
	}
	return len(expired)
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(max(m.ttl/2, 10*time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) full() bool {
	if m.maxSessions <= 0 {
		return false
	}
	return m.Len() >= m.maxSessions
}

// Close shuts down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
	for _, s := range sessions {
		s.close()
	}
}

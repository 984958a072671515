package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/todmy/style-analyzer/internal/filter"
	"github.com/todmy/style-analyzer/pkg/models"
)

const (
	defaultTTL           = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// Session binds one analysis session's surfaced errors to its filter
// engine. Filter engines are not concurrency-safe, so all access goes
// through With.
type Session struct {
	ID        string
	mu        sync.Mutex
	errors    []models.Error
	filter    *filter.Engine
	expiresAt time.Time
}

// With runs fn with exclusive access to the session's filter engine and
// error list.
func (s *Session) With(fn func(engine *filter.Engine, errors []models.Error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.filter, s.errors)
}

// SetErrors replaces the session's surfaced errors and reloads the filter.
func (s *Session) SetErrors(errors []models.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = errors
	s.filter.ApplyFilters(errors)
}

// Cache is the short-lived in-memory session store. Sessions expire after
// the TTL; filter state is deliberately not restored across sessions.
type Cache struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewCache creates a session cache and starts its eviction sweep.
func NewCache(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go c.sweep()
	return c
}

// GetOrCreate returns the session, creating it with a fresh all-active
// filter engine when absent. Access extends the TTL.
func (c *Cache) GetOrCreate(id string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if !ok {
		s = &Session{
			ID:     id,
			filter: filter.NewEngine(c.logger),
		}
		c.sessions[id] = s
	}
	s.expiresAt = time.Now().Add(c.ttl)
	return s
}

// Get returns the session if present.
func (c *Cache) Get(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[id]
	if ok {
		s.expiresAt = time.Now().Add(c.ttl)
	}
	return s, ok
}

// Close stops the eviction sweep.
func (c *Cache) Close() {
	close(c.done)
}

func (c *Cache) sweep() {
	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.evictExpired(now)
		}
	}
}

func (c *Cache) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, s := range c.sessions {
		if now.After(s.expiresAt) {
			delete(c.sessions, id)
		}
	}
}

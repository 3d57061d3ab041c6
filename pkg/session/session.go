// Package session stores login sessions server-side, in memory or in Redis.
//
// Expiry is checked when a session is read; nothing sweeps the store in
// the background. A Redis store additionally sets a key TTL.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/pkg/cache"
)

// CookieName carries the login token for browser clients.
const CookieName = "faultline_session"

// ErrNotFound is returned for unknown (or evicted) session ids.
var ErrNotFound = errors.New("session: not found")

// Session is one login.
type Session struct {
	ID        string    `json:"id"`
	UserID    int       `json:"userId"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// New starts a session for userID lasting ttl from now.
func New(userID int, role string, now time.Time, ttl time.Duration) Session {
	now = now.UTC()
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether s is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// ─── Memory ───────────────────────────────────────────────────────────────────

// MemoryStore keeps sessions in a map for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ─── Redis ────────────────────────────────────────────────────────────────────

// RedisStore keeps sessions in Redis with a TTL matching their expiry.
type RedisStore struct {
	c *cache.Cache
}

func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{c: c}
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.c.Set(ctx, s.ID, s, ttl); err != nil {
		return fmt.Errorf("session: save %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.c.Get(ctx, id, &s)
	if errors.Is(err, cache.ErrMiss) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: load %s: %w", id, err)
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.c.Del(ctx, id)
}

package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// Session binds a browser to an authenticated user.
type Session struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	AuthHash  string    `json:"auth_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session with a fresh random id.
func NewSession(userID uint, authHash string, ttl time.Duration) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		AuthHash:  authHash,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// SessionStore persists sessions server side.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
}

// RedisSessionStore keeps sessions as JSON values with a TTL matching their expiry.
type RedisSessionStore struct {
	rc *redis.Client
}

// NewRedisSessionStore creates a store on top of an existing client.
func NewRedisSessionStore(rc *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rc: rc}
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := r.rc.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	if s.Expired() {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	if err := r.rc.Set(ctx, sessionKeyPrefix+s.ID, b, ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.rc.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, cur, err := r.rc.Scan(ctx, cursor, sessionKeyPrefix+"*", 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("session scan: %w", err)
		}
		total += len(keys)
		cursor = cur
		if cursor == 0 {
			return total, nil
		}
	}
}

// MemorySessionStore is the single-instance fallback used when redis is not configured.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]Session{}}
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Expired() {
		delete(m.sessions, s.ID)
		return nil
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Expired() {
			delete(m.sessions, id)
		}
	}
	return len(m.sessions), nil
}

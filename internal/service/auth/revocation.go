package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Revocations tracks each user's issued session ids and remembers
// signed-out ids until they expire.
type Revocations interface {
	// Track records sessionID as a live session of userID for ttl.
	Track(ctx context.Context, userID, sessionID string, ttl time.Duration) error
	// RevokeUser revokes every tracked session of userID for ttl.
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// MemoryRevocations keeps session ids in process memory.
type MemoryRevocations struct {
	mu       sync.Mutex
	sessions map[string]map[string]time.Time
	revoked  map[string]time.Time
	now      func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		sessions: make(map[string]map[string]time.Time),
		revoked:  make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryRevocations) Track(_ context.Context, userID, sessionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	live := m.sessions[userID]
	if live == nil {
		live = make(map[string]time.Time)
		m.sessions[userID] = live
	}
	for id, until := range live {
		if now.After(until) {
			delete(live, id)
		}
	}
	live[sessionID] = now.Add(ttl)
	return nil
}

func (m *MemoryRevocations) RevokeUser(_ context.Context, userID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, until := range m.revoked {
		if now.After(until) {
			delete(m.revoked, id)
		}
	}
	for id := range m.sessions[userID] {
		m.revoked[id] = now.Add(ttl)
	}
	delete(m.sessions, userID)
	return nil
}

func (m *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.revoked[sessionID]
	if !ok {
		return false, nil
	}
	return !m.now().After(until), nil
}

// RedisRevocations stores session sets and revoked ids as expiring keys so
// every replica sees them.
type RedisRevocations struct {
	client *redis.Client
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func revokedKey(sessionID string) string {
	return "revoked:" + sessionID
}

func sessionsKey(userID string) string {
	return "sessions:" + userID
}

func (r *RedisRevocations) Track(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	key := sessionsKey(userID)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, sessionID)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRevocations) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	key := sessionsKey(userID)
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Set(ctx, revokedKey(id), "1", ttl)
	}
	pipe.Del(ctx, key)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

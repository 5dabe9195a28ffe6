package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/educhat/backend/internal/model/chat"
)

const messageCacheTTL = 24 * time.Hour

// CachedMessages is a read-through Redis cache in front of a MessageStore.
// Cache failures are logged and fall back to the underlying store.
type CachedMessages struct {
	next  MessageStore
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedMessages wraps next with a cache backed by client.
func NewCachedMessages(next MessageStore, client *redis.Client) *CachedMessages {
	return &CachedMessages{next: next, redis: client, ttl: messageCacheTTL}
}

func messagesKey(userID string, limit int) string {
	return fmt.Sprintf("messages:%s:%d", userID, limit)
}

func messagesPattern(userID string) string {
	return fmt.Sprintf("messages:%s:*", userID)
}

// ListMessages serves from the cache when present, populating it otherwise.
func (c *CachedMessages) ListMessages(ctx context.Context, userID string, limit int) ([]chat.Message, error) {
	key := messagesKey(userID, limit)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var messages []chat.Message
		if jsonErr := json.Unmarshal(cached, &messages); jsonErr == nil {
			return messages, nil
		}
		log.Printf("[cache] discarding malformed entry %s", key)
	case err != redis.Nil:
		log.Printf("[cache] failed to read %s: %v", key, err)
	}

	messages, err := c.next.ListMessages(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		log.Printf("[cache] failed to marshal messages: %v", err)
		return messages, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Printf("[cache] failed to cache messages: %v", err)
	}
	return messages, nil
}

// InsertMessage writes through and invalidates the user's cached pages.
func (c *CachedMessages) InsertMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	saved, err := c.next.InsertMessage(ctx, message)
	if err != nil {
		return chat.Message{}, err
	}
	c.invalidate(ctx, message.UserID)
	return saved, nil
}

func (c *CachedMessages) invalidate(ctx context.Context, userID string) {
	keys, err := c.redis.Keys(ctx, messagesPattern(userID)).Result()
	if err != nil {
		log.Printf("[cache] failed to list keys for user=%s: %v", userID, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[cache] failed to invalidate user=%s: %v", userID, err)
	}
}

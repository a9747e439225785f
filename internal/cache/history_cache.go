package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"secureauthhub/internal/model"
)

const (
	defaultHistoryTTL = 60 * time.Second
	defaultDirtyTTL   = 5 * time.Second
)

type Options struct {
	KeyPrefix  string
	HistoryTTL time.Duration
	DirtyTTL   time.Duration
}

// HistoryCache keeps the recent messages of each chat session in Redis. While
// the dirty marker of a session exists, readers go to the database instead:
// the persistence worker has not stored every queued message yet.
type HistoryCache struct {
	client     *redisv9.Client
	prefix     string
	historyTTL time.Duration
	dirtyTTL   time.Duration
}

func NewHistoryCache(client *redisv9.Client, opts Options) *HistoryCache {
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = defaultHistoryTTL
	}
	if opts.DirtyTTL <= 0 {
		opts.DirtyTTL = defaultDirtyTTL
	}
	prefix := strings.TrimSuffix(opts.KeyPrefix, ":")
	if prefix != "" {
		prefix += ":"
	}
	return &HistoryCache{
		client:     client,
		prefix:     prefix,
		historyTTL: opts.HistoryTTL,
		dirtyTTL:   opts.DirtyTTL,
	}
}

// GetHistory reports a miss as (nil, false, nil).
func (c *HistoryCache) GetHistory(ctx context.Context, sessionID uint) ([]model.ChatMessage, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, redisv9.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read history of session %d failed: %w", sessionID, err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("decode history of session %d failed: %w", sessionID, err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, sessionID uint, messages []model.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode history of session %d failed: %w", sessionID, err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("write history of session %d failed: %w", sessionID, err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID uint) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("drop history of session %d failed: %w", sessionID, err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, sessionID uint) (bool, error) {
	n, err := c.client.Exists(ctx, c.dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check dirty marker of session %d failed: %w", sessionID, err)
	}
	return n > 0, nil
}

// Invalidate drops the cached history and sets the dirty marker in a single
// MULTI so no reader can repopulate the cache in between.
func (c *HistoryCache) Invalidate(ctx context.Context, sessionID uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Del(ctx, c.historyKey(sessionID))
		pipe.Set(ctx, c.dirtyKey(sessionID), "1", c.dirtyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate history of session %d failed: %w", sessionID, err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionID uint) string {
	return fmt.Sprintf("%schat:history:%d", c.prefix, sessionID)
}

func (c *HistoryCache) dirtyKey(sessionID uint) string {
	return fmt.Sprintf("%schat:history:dirty:%d", c.prefix, sessionID)
}

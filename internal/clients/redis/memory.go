package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/poppacare/poppa-backend/internal/logger"
	"github.com/poppacare/poppa-backend/internal/types"
)

const (
	// Conversation history lives for 24 hours, reset on every append.
	memoryTTL = 24 * time.Hour

	// DefaultHistoryLimit bounds how many trailing messages a load returns
	// when the caller does not ask for a specific count.
	DefaultHistoryLimit = 10
)

// Memory is the conversation cache: an append-only, TTL-bound message list
// per derived session key.
type Memory interface {
	Save(ctx context.Context, key SessionKey, msgs []types.ChatMessage) error
	Load(ctx context.Context, key SessionKey, limit int) ([]types.ChatMessage, error)
	Clear(ctx context.Context, key SessionKey) error
	TTL(ctx context.Context, key SessionKey) (time.Duration, error)
	Close() error
}

type memory struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewMemoryFromEnv(log *logger.Logger) (Memory, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	rawURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if rawURL == "" {
		rawURL = "redis://localhost:6379"
	}
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse REDIS_URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &memory{
		log: log.With("client", "RedisMemory"),
		rdb: rdb,
	}, nil
}

// Save appends msgs to the tail of the key's list and resets the 24h expiry
// in the same pipelined transaction, so no append is ever left without a
// live TTL.
func (m *memory) Save(ctx context.Context, key SessionKey, msgs []types.ChatMessage) error {
	if m == nil || m.rdb == nil {
		return fmt.Errorf("redis memory not initialized")
	}
	if len(msgs) == 0 {
		return nil
	}

	redisKey := key.Derive()
	payload := make([]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("redis: marshal message: %w", err)
		}
		payload = append(payload, raw)
	}

	pipe := m.rdb.TxPipeline()
	pipe.RPush(ctx, redisKey, payload...)
	pipe.Expire(ctx, redisKey, memoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: save %d messages: %w", len(msgs), err)
	}

	m.log.Debug("Saved messages to conversation memory", "key", redisKey, "count", len(msgs))
	return nil
}

// Load returns the last limit messages, oldest-first. All callers see
// chronological order.
func (m *memory) Load(ctx context.Context, key SessionKey, limit int) ([]types.ChatMessage, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("redis memory not initialized")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	redisKey := key.Derive()
	raw, err := m.rdb.LRange(ctx, redisKey, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load history: %w", err)
	}

	msgs := make([]types.ChatMessage, 0, len(raw))
	for _, entry := range raw {
		var msg types.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			m.log.Warn("Skipping malformed conversation entry", "key", redisKey, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (m *memory) Clear(ctx context.Context, key SessionKey) error {
	if m == nil || m.rdb == nil {
		return fmt.Errorf("redis memory not initialized")
	}
	return m.rdb.Del(ctx, key.Derive()).Err()
}

func (m *memory) TTL(ctx context.Context, key SessionKey) (time.Duration, error) {
	if m == nil || m.rdb == nil {
		return 0, fmt.Errorf("redis memory not initialized")
	}
	return m.rdb.TTL(ctx, key.Derive()).Result()
}

func (m *memory) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

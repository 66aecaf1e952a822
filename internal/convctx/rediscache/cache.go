// Package rediscache implements the warm, hot-in-memory-adjacent tier of
// convctx.Store: a Redis-backed cache with a fixed TTL, sitting in front of a
// cold durable store. It mirrors the layering used by the teacher's Pulse
// client (features/stream/pulse/clients/pulse): callers construct a
// *redis.Client and pass it to New.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/excelencia-digital/orquestador/internal/convctx"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
)

// DefaultTTL matches spec.md §4.1 ("remote KV, TTL ~= 7 days").
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "orquestador:convctx:"

// Options configures the warm cache tier.
type Options struct {
	// Client is a connected Redis client. Required.
	Client *redis.Client
	// TTL overrides DefaultTTL.
	TTL time.Duration
	// Logger receives non-fatal cache errors (writes never fail the request).
	Logger telemetry.Logger
}

// Cache is the warm tier. It is read-through (GetContext warms the cache on
// a cold-store hit via Store's orchestration, not by Cache itself) and
// write-through only in the sense that Store writes to it after the durable
// tier succeeds.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger telemetry.Logger
}

// New constructs a Cache.
func New(opts Options) (*Cache, error) {
	if opts.Client == nil {
		return nil, errors.New("rediscache: client is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Cache{client: opts.Client, ttl: ttl, logger: logger}, nil
}

// Get returns the cached context, or nil if absent or on any Redis error
// (errors are logged, never returned — cache errors must not fail a request).
func (c *Cache) Get(ctx context.Context, conversationID string) *convctx.Context {
	raw, err := c.client.Get(ctx, keyPrefix+conversationID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "rediscache: get failed", "conversation_id", conversationID, "error", err.Error())
		}
		return nil
	}
	var out convctx.Context
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Warn(ctx, "rediscache: decode failed", "conversation_id", conversationID, "error", err.Error())
		return nil
	}
	return &out
}

// Set writes the context with TTL. Failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, conv *convctx.Context) {
	raw, err := json.Marshal(conv)
	if err != nil {
		c.logger.Warn(ctx, "rediscache: encode failed", "conversation_id", conv.ConversationID, "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, keyPrefix+conv.ConversationID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "rediscache: set failed", "conversation_id", conv.ConversationID, "error", err.Error())
	}
}

// Invalidate removes the cached entry. Failures are logged, not returned.
func (c *Cache) Invalidate(ctx context.Context, conversationID string) {
	if err := c.client.Del(ctx, keyPrefix+conversationID).Err(); err != nil {
		c.logger.Warn(ctx, "rediscache: invalidate failed", "conversation_id", conversationID, "error", err.Error())
	}
}

package convctx

import (
	"context"
	"time"

	"github.com/excelencia-digital/orquestador/internal/telemetry"
)

// WarmCache is the subset of rediscache.Cache used by TieredStore, kept as an
// interface so tests can substitute a fake without a live Redis server.
type WarmCache interface {
	Get(ctx context.Context, conversationID string) *Context
	Set(ctx context.Context, conv *Context)
	Invalidate(ctx context.Context, conversationID string)
}

// TieredStore composes a durable store with an optional warm cache, per
// spec.md §4.1: hot/warm cache first, durable store on miss (warming the
// cache on a cold hit); writes go to the durable store first, then
// best-effort to the cache. A nil Warm degrades gracefully to durable-only.
type TieredStore struct {
	Durable Store
	Warm    WarmCache
	Logger  telemetry.Logger
	Clock   func() time.Time
}

// NewTieredStore constructs a TieredStore. durable must not be nil; warm may
// be nil to run without a shared cache tier.
func NewTieredStore(durable Store, warm WarmCache, logger telemetry.Logger) *TieredStore {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &TieredStore{Durable: durable, Warm: warm, Logger: logger, Clock: time.Now}
}

// GetContext implements Store's tiered read.
func (t *TieredStore) GetContext(ctx context.Context, conversationID string) (*Context, error) {
	if t.Warm != nil {
		if c := t.Warm.Get(ctx, conversationID); c != nil {
			return c, nil
		}
	}
	c, err := t.Durable.GetContext(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if c != nil && t.Warm != nil {
		t.Warm.Set(ctx, c)
	}
	return c, nil
}

// SaveContext implements Store. The durable write is authoritative: if it
// fails the call fails. Warming the cache is best-effort.
func (t *TieredStore) SaveContext(ctx context.Context, c *Context) error {
	now := t.now()
	c.UpdatedAt = now
	c.LastActivityAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if err := t.Durable.SaveContext(ctx, c); err != nil {
		return err
	}
	if t.Warm != nil {
		t.Warm.Set(ctx, c)
	}
	return nil
}

// SaveMessage implements Store. Messages are durable-store only.
func (t *TieredStore) SaveMessage(ctx context.Context, m *Message) error {
	return t.Durable.SaveMessage(ctx, m)
}

// GetRecentMessages implements Store.
func (t *TieredStore) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	return t.Durable.GetRecentMessages(ctx, conversationID, limit)
}

// ClearContext implements Store, invalidating the warm tier as well.
func (t *TieredStore) ClearContext(ctx context.Context, conversationID string) error {
	if err := t.Durable.ClearContext(ctx, conversationID); err != nil {
		return err
	}
	if t.Warm != nil {
		t.Warm.Invalidate(ctx, conversationID)
	}
	return nil
}

func (t *TieredStore) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

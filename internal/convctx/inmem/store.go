// Package inmem provides an in-memory convctx.Store implementation for tests
// and local development. It is not durable and not shared across processes.
package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/excelencia-digital/orquestador/internal/convctx"
)

// Store is an in-memory implementation of convctx.Store. Safe for concurrent
// use.
type Store struct {
	mu       sync.RWMutex
	contexts map[string]*convctx.Context
	messages map[string][]*convctx.Message
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		contexts: make(map[string]*convctx.Context),
		messages: make(map[string][]*convctx.Message),
	}
}

// GetContext implements convctx.Store.
func (s *Store) GetContext(_ context.Context, conversationID string) (*convctx.Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contexts[conversationID]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

// SaveContext implements convctx.Store.
func (s *Store) SaveContext(_ context.Context, c *convctx.Context) error {
	if c == nil || c.ConversationID == "" {
		return convctx.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.ConversationID] = c.Clone()
	return nil
}

// SaveMessage implements convctx.Store.
func (s *Store) SaveMessage(_ context.Context, m *convctx.Message) error {
	if m == nil || m.ConversationID == "" {
		return convctx.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], &cp)
	return nil
}

// GetRecentMessages implements convctx.Store.
func (s *Store) GetRecentMessages(_ context.Context, conversationID string, limit int) ([]*convctx.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[conversationID]
	sorted := make([]*convctx.Message, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	out := make([]*convctx.Message, len(sorted))
	for i, m := range sorted {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

// ClearContext implements convctx.Store. Deletes the context and its
// messages atomically (both mutations happen under a single lock).
func (s *Store) ClearContext(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, conversationID)
	delete(s.messages, conversationID)
	return nil
}

package convctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDurable struct {
	contexts map[string]*Context
	saved    int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{contexts: make(map[string]*Context)}
}

func (f *fakeDurable) GetContext(_ context.Context, conversationID string) (*Context, error) {
	return f.contexts[conversationID], nil
}

func (f *fakeDurable) SaveContext(_ context.Context, c *Context) error {
	f.saved++
	f.contexts[c.ConversationID] = c
	return nil
}

func (f *fakeDurable) SaveMessage(context.Context, *Message) error { return nil }

func (f *fakeDurable) GetRecentMessages(context.Context, string, int) ([]*Message, error) {
	return nil, nil
}

func (f *fakeDurable) ClearContext(_ context.Context, conversationID string) error {
	delete(f.contexts, conversationID)
	return nil
}

type fakeWarm struct {
	entries    map[string]*Context
	sets       int
	invalidate int
}

func newFakeWarm() *fakeWarm {
	return &fakeWarm{entries: make(map[string]*Context)}
}

func (w *fakeWarm) Get(_ context.Context, conversationID string) *Context {
	return w.entries[conversationID]
}

func (w *fakeWarm) Set(_ context.Context, c *Context) {
	w.sets++
	w.entries[c.ConversationID] = c
}

func (w *fakeWarm) Invalidate(_ context.Context, conversationID string) {
	w.invalidate++
	delete(w.entries, conversationID)
}

func TestTieredStoreReadsWarmBeforeDurable(t *testing.T) {
	durable := newFakeDurable()
	warm := newFakeWarm()
	ts := NewTieredStore(durable, warm, nil)

	warm.entries["conv-1"] = &Context{ConversationID: "conv-1", LastUserMessage: "from warm"}
	durable.contexts["conv-1"] = &Context{ConversationID: "conv-1", LastUserMessage: "from durable"}

	got, err := ts.GetContext(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "from warm", got.LastUserMessage)
}

func TestTieredStoreWarmsCacheOnColdHit(t *testing.T) {
	durable := newFakeDurable()
	warm := newFakeWarm()
	ts := NewTieredStore(durable, warm, nil)

	durable.contexts["conv-2"] = &Context{ConversationID: "conv-2", LastUserMessage: "from durable"}

	got, err := ts.GetContext(context.Background(), "conv-2")
	require.NoError(t, err)
	assert.Equal(t, "from durable", got.LastUserMessage)
	assert.Equal(t, 1, warm.sets, "a cold hit should warm the cache")
}

func TestTieredStoreSaveIsDurableFirstThenWarm(t *testing.T) {
	durable := newFakeDurable()
	warm := newFakeWarm()
	ts := NewTieredStore(durable, warm, nil)

	require.NoError(t, ts.SaveContext(context.Background(), &Context{ConversationID: "conv-3"}))
	assert.Equal(t, 1, durable.saved)
	assert.Equal(t, 1, warm.sets)
}

func TestTieredStoreDegradesGracefullyWithNilWarm(t *testing.T) {
	durable := newFakeDurable()
	ts := NewTieredStore(durable, nil, nil)

	require.NoError(t, ts.SaveContext(context.Background(), &Context{ConversationID: "conv-4"}))
	got, err := ts.GetContext(context.Background(), "conv-4")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestTieredStoreClearInvalidatesWarm(t *testing.T) {
	durable := newFakeDurable()
	warm := newFakeWarm()
	ts := NewTieredStore(durable, warm, nil)

	durable.contexts["conv-5"] = &Context{ConversationID: "conv-5"}
	warm.entries["conv-5"] = &Context{ConversationID: "conv-5"}

	require.NoError(t, ts.ClearContext(context.Background(), "conv-5"))
	assert.Equal(t, 1, warm.invalidate)
	assert.Nil(t, durable.contexts["conv-5"])
}

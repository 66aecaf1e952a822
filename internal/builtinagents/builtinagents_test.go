package builtinagents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

func TestRegisterDefaultsWiresAllThreeCannedWorkers(t *testing.T) {
	f := agentfactory.New(nil, nil)
	RegisterDefaults(f)

	agents := map[string]*tenant.AgentConfig{
		GreetingAgentKey: {AgentKey: GreetingAgentKey, Enabled: true, Priority: 10},
		FallbackAgentKey: {AgentKey: FallbackAgentKey, Enabled: true, Priority: 10},
		FarewellAgentKey: {AgentKey: FarewellAgentKey, Enabled: true, Priority: 10},
	}
	reg := tenant.NewRegistry("org-1", agents, nil, nil, "")

	built, err := f.Build(reg, map[string]struct{}{
		GreetingAgentKey: {}, FallbackAgentKey: {}, FarewellAgentKey: {},
	})
	require.NoError(t, err)

	for _, key := range []string{GreetingAgentKey, FallbackAgentKey, FarewellAgentKey} {
		_, ok := built.Lookup(key)
		assert.True(t, ok, "expected %s to be built", key)
	}
}

func TestGreetReturnsASalutationWithoutCompletingTheConversation(t *testing.T) {
	result, err := greet(context.Background(), "hola", worker.State{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "assistant", result.Messages[0].Role)
	assert.NotEmpty(t, result.Messages[0].Content)
	assert.False(t, result.IsComplete)
}

func TestFallbackReturnsAClarifyingQuestion(t *testing.T) {
	result, err := fallback(context.Background(), "algo raro", worker.State{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.False(t, result.IsComplete)
}

func TestFarewellForcesIsComplete(t *testing.T) {
	result, err := farewell(context.Background(), "chau", worker.State{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)
	assert.True(t, result.IsComplete)
}

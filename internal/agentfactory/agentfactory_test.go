package agentfactory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

func echoBuilder(name string) Builder {
	return func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return worker.Func(func(ctx context.Context, message string, state worker.State) (worker.Result, error) {
			return worker.Result{Messages: []worker.Message{{Role: "assistant", Content: name}}}, nil
		}), nil
	}
}

func TestBuildOnlyInstantiatesTenantAndGlobalEnabledIntersection(t *testing.T) {
	f := New(nil, nil)
	f.Register("credit_agent", echoBuilder("credit"))
	f.Register("ecommerce_agent", echoBuilder("ecommerce"))

	agents := map[string]*tenant.AgentConfig{
		"credit_agent":    {AgentKey: "credit_agent", Enabled: true, Priority: 10},
		"ecommerce_agent": {AgentKey: "ecommerce_agent", Enabled: true, Priority: 10},
	}
	reg := tenant.NewRegistry("org-1", agents, nil, nil, "")

	globalEnabled := map[string]struct{}{"credit_agent": {}}
	built, err := f.Build(reg, globalEnabled)
	require.NoError(t, err)

	_, ok := built.Lookup("credit_agent")
	assert.True(t, ok)
	_, ok = built.Lookup("ecommerce_agent")
	assert.False(t, ok)
}

func TestBuildSkipsAgentWithNoRegisteredBuilderRatherThanFailing(t *testing.T) {
	f := New(nil, nil)
	agents := map[string]*tenant.AgentConfig{
		"unregistered_agent": {AgentKey: "unregistered_agent", Enabled: true, Priority: 10},
	}
	reg := tenant.NewRegistry("org-1", agents, nil, nil, "")

	built, err := f.Build(reg, map[string]struct{}{"unregistered_agent": {}})
	require.NoError(t, err)

	_, ok := built.Lookup("unregistered_agent")
	assert.False(t, ok)
}

func TestBuildResolvesCustomAgentsByDottedClassRef(t *testing.T) {
	f := New(nil, nil)
	f.RegisterCustom("acme.agents.SpecialAgent", echoBuilder("special"))

	agents := map[string]*tenant.AgentConfig{
		"special_agent": {AgentKey: "special_agent", ClassRef: "acme.agents.SpecialAgent", Enabled: true, Priority: 10},
	}
	reg := tenant.NewRegistry("org-1", agents, nil, nil, "")

	built, err := f.Build(reg, map[string]struct{}{"special_agent": {}})
	require.NoError(t, err)

	w, ok := built.Lookup("special_agent")
	require.True(t, ok)
	result, err := w.Process(context.Background(), "hi", worker.State{})
	require.NoError(t, err)
	assert.Equal(t, "special", result.Messages[0].Content)
}

func TestBuildLogsAndSkipsWhenBuilderErrors(t *testing.T) {
	f := New(nil, nil)
	f.Register("broken_agent", func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return nil, errors.New("boom")
	})

	agents := map[string]*tenant.AgentConfig{
		"broken_agent": {AgentKey: "broken_agent", Enabled: true, Priority: 10},
	}
	reg := tenant.NewRegistry("org-1", agents, nil, nil, "")

	built, err := f.Build(reg, map[string]struct{}{"broken_agent": {}})
	require.NoError(t, err)

	_, ok := built.Lookup("broken_agent")
	assert.False(t, ok)
}

func TestRegistryReleaseDoesNotPanicWithoutAppliedAgents(t *testing.T) {
	f := New(nil, nil)
	reg := tenant.NewRegistry("org-1", map[string]*tenant.AgentConfig{}, nil, nil, "")
	built, err := f.Build(reg, map[string]struct{}{})
	require.NoError(t, err)
	built.Release()
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/builtinagents"
	"github.com/excelencia-digital/orquestador/internal/convctx"
	"github.com/excelencia-digital/orquestador/internal/convctx/inmem"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer/keywordanalyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/router"
	"github.com/excelencia-digital/orquestador/internal/supervisor"
	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// scenarioDeps mirrors buildTestDeps but lets each scenario supply its own
// agent set, bypass rules and worker builders (spec.md §8 S1-S6).
func scenarioDeps(t *testing.T, agents map[string]*tenant.AgentConfig, rules []tenant.BypassRule, register func(*agentfactory.Factory)) (Deps, *tenant.Registry) {
	t.Helper()

	reg := tenant.NewRegistry("org-1", agents, nil, rules, "")

	factory := agentfactory.New(nil, nil)
	builtinagents.RegisterDefaults(factory)
	if register != nil {
		register(factory)
	}

	kw := keywordanalyzer.New(nil)
	intentRouter := router.New(nil, nil, kw, nil, nil)

	sup := supervisor.New(nil)

	globalEnabled := make(map[string]struct{}, len(agents))
	for key := range agents {
		globalEnabled[key] = struct{}{}
	}

	return Deps{
		ContextStore:        inmem.New(),
		Tenants:             staticResolver{registry: reg},
		Router:              intentRouter,
		Factory:             factory,
		Supervisor:          sup,
		GlobalEnabledAgents: globalEnabled,
		FallbackAgentKey:    builtinagents.FallbackAgentKey,
	}, reg
}

func echoWorker(content string, rag *worker.RAGMetrics) worker.Worker {
	return worker.Func(func(_ context.Context, _ string, _ worker.State) (worker.Result, error) {
		return worker.Result{
			Messages:   []worker.Message{{Role: "assistant", Content: content}},
			RAGMetrics: rag,
		}, nil
	})
}

// S2 — Flow continuation: a previous turn ended on a flow-owning agent, so
// the router pins to it without consulting any analyzer.
func TestScenarioFlowContinuationPinsToOwningAgent(t *testing.T) {
	agents := map[string]*tenant.AgentConfig{
		"credit_agent":   {AgentKey: "credit_agent", Enabled: true, Priority: 10},
		"fallback_agent": {AgentKey: "fallback_agent", Enabled: true, Priority: 0},
	}
	deps, _ := scenarioDeps(t, agents, nil, func(f *agentfactory.Factory) {
		f.Register("credit_agent", func(*tenant.AgentConfig) (worker.Worker, error) {
			return echoWorker("tu saldo es $500", &worker.RAGMetrics{HasResults: true, ResultCount: 1}), nil
		})
	})

	store := deps.ContextStore.(*inmem.Store)
	require.NoError(t, store.SaveContext(context.Background(), &convctx.Context{
		ConversationID: "conv-flow", LastAgent: "credit_agent", LastUserMessage: "cual es mi saldo",
	}))

	req := InvokeRequest{Message: "alta", ConversationID: "conv-flow", OrganizationID: "org-1"}
	result, err := RunTurn(context.Background(), deps, req, nil)
	require.NoError(t, err)

	assert.Contains(t, result.State.AgentHistory, "credit_agent")
	assert.Equal(t, 1, result.State.RoutingAttempts)
}

// S4 — Anti-loop on empty RAG: the first supervisor pass must stop_retry
// rather than re_route when the worker reports no results.
func TestScenarioAntiLoopStopsWithoutReRouteOnEmptyRAG(t *testing.T) {
	agents := map[string]*tenant.AgentConfig{
		"ecommerce_agent": {
			AgentKey: "ecommerce_agent", Enabled: true, Priority: 10,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "product_inquiry", Weight: 1}},
		},
		"fallback_agent": {AgentKey: "fallback_agent", Enabled: true, Priority: 0},
	}
	deps, _ := scenarioDeps(t, agents, nil, func(f *agentfactory.Factory) {
		f.Register("ecommerce_agent", func(*tenant.AgentConfig) (worker.Worker, error) {
			return echoWorker("no tengo información sobre ese producto", &worker.RAGMetrics{HasResults: false}), nil
		})
	})

	req := InvokeRequest{Message: "quiero saber del producto", ConversationID: "conv-antiloop", OrganizationID: "org-1"}
	result, err := RunTurn(context.Background(), deps, req, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, len(result.State.AgentHistory), "a single worker invocation, no re-route")
	require.NotNil(t, result.State.SupervisorEvaluation)
	assert.Equal(t, supervisor.ActionStopRetry, result.State.SupervisorEvaluation.SuggestedAction)
	assert.True(t, result.HumanHandoffRequested, "this reply's overall score is below 0.3, which forces handoff")
}

// S5 — Handoff on frustration: two consecutive frustration markers force
// human_handoff_requested regardless of the evaluator's score.
func TestScenarioHandoffOnFrustration(t *testing.T) {
	agents := map[string]*tenant.AgentConfig{
		"support_agent": {
			AgentKey: "support_agent", Enabled: true, Priority: 10,
			IntentPatterns: []tenant.IntentPattern{{Pattern: "support_request", Weight: 1}},
		},
		"fallback_agent": {AgentKey: "fallback_agent", Enabled: true, Priority: 0},
	}
	deps, _ := scenarioDeps(t, agents, nil, func(f *agentfactory.Factory) {
		f.Register("support_agent", func(*tenant.AgentConfig) (worker.Worker, error) {
			return echoWorker("¿hay algo más en lo que pueda ayudarte?", &worker.RAGMetrics{HasResults: true, ResultCount: 1}), nil
		})
	})

	store := deps.ContextStore.(*inmem.Store)
	require.NoError(t, store.SaveContext(context.Background(), &convctx.Context{
		ConversationID: "conv-frustrated", LastUserMessage: "esto no funciona",
	}))

	req := InvokeRequest{Message: "tengo un problema, quiero hablar con una persona", ConversationID: "conv-frustrated", OrganizationID: "org-1"}
	result, err := RunTurn(context.Background(), deps, req, nil)
	require.NoError(t, err)

	assert.True(t, result.HumanHandoffRequested)
	assert.True(t, result.State.IsComplete || result.State.HumanHandoffRequested)
}

// S6 — Bypass rule by phone prefix: a matching pre-router-free bypass rule
// routes directly to its target agent without analyzer involvement.
func TestScenarioBypassRuleByPhonePrefix(t *testing.T) {
	agents := map[string]*tenant.AgentConfig{
		"pharmacy_operations_agent": {AgentKey: "pharmacy_operations_agent", Enabled: true, Priority: 10},
		"fallback_agent":            {AgentKey: "fallback_agent", Enabled: true, Priority: 0},
	}
	rules := []tenant.BypassRule{
		{RuleName: "phone-prefix", RuleType: tenant.BypassRuleTypePhoneNumber, Pattern: "549264*", TargetAgent: "pharmacy_operations_agent", Priority: 10, Enabled: true},
	}
	deps, _ := scenarioDeps(t, agents, rules, func(f *agentfactory.Factory) {
		f.Register("pharmacy_operations_agent", func(*tenant.AgentConfig) (worker.Worker, error) {
			return echoWorker("turno agendado", nil), nil
		})
	})

	req := InvokeRequest{Message: "hola", UserPhone: "5492641234567", ConversationID: "conv-bypass", OrganizationID: "org-1"}
	result, err := RunTurn(context.Background(), deps, req, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"pharmacy_operations_agent"}, result.State.AgentHistory)
	assert.Equal(t, 1, result.State.BypassCount)
}

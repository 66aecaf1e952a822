package engine

import (
	"context"
	"time"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/convctx"
	"github.com/excelencia-digital/orquestador/internal/graph"
	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/router"
	"github.com/excelencia-digital/orquestador/internal/intent/validate"
	"github.com/excelencia-digital/orquestador/internal/supervisor"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
	"github.com/excelencia-digital/orquestador/internal/tenant"
)

// TenantResolver builds the ephemeral per-request tenant.Registry (C6).
type TenantResolver interface {
	Resolve(ctx context.Context, organizationID, bypassTargetAgent string) (*tenant.Registry, error)
}

// Deps bundles the components RunTurn drives. A single Deps value is shared
// across turns and across conversations; RunTurn itself holds no state.
type Deps struct {
	ContextStore convctx.Store
	Tenants      TenantResolver
	Router       *router.Router
	Factory      *agentfactory.Factory
	Supervisor   *supervisor.Supervisor
	Checkpoints  CheckpointStore

	GlobalEnabledAgents map[string]struct{}
	FallbackAgentKey    string

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// RunTurn executes one complete turn of the state machine described in
// spec.md §4.10 ("State machine of the conversation loop") and §4.11. It is
// the orchestration core shared by the inmem and temporalengine backends;
// callers are responsible for the per-conversation advisory lock (spec.md §5)
// around this call.
//
// emit, if non-nil, receives one StreamEvent per node visit (used by
// Engine.Stream); Invoke passes a nil emit and only consumes the return
// value.
func RunTurn(ctx context.Context, d Deps, req InvokeRequest, emit func(StreamEvent)) (InvokeResult, error) {
	logger := d.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTurnBudget)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordTimer("engine.runturn.duration", time.Since(start)) }()

	prior, err := d.ContextStore.GetContext(ctx, req.ConversationID)
	if err != nil {
		return InvokeResult{}, err
	}

	state := buildInitialState(req, prior)

	reg, err := d.Tenants.Resolve(ctx, req.OrganizationID, req.BypassTargetAgent)
	if err != nil {
		return InvokeResult{}, err
	}

	workers, err := d.Factory.Build(reg, d.GlobalEnabledAgents)
	if err != nil {
		return InvokeResult{}, err
	}
	defer workers.Release()

	enabled := make(graph.EnabledSet, len(reg.Agents))
	for _, a := range reg.EnabledAgentsSorted() {
		if _, ok := d.GlobalEnabledAgents[a.AgentKey]; ok {
			enabled[a.AgentKey] = struct{}{}
		}
	}

	step := 0
	for step < graph.MaxRoutingAttempts*graph.MaxSupervisorRetries {
		step++

		bypassesBefore := state.BypassCount
		state = orchestrate(ctx, reg, d.Router, state, req.Message)
		node := graph.RouteToAgent(state, enabled, d.FallbackAgentKey)
		if node == graph.End {
			break
		}

		// A bypassed visit is counted in BypassCount only, keeping
		// len(AgentHistory) == RoutingAttempts + BypassCount.
		if state.BypassCount == bypassesBefore {
			state.RoutingAttempts++
		}
		state = graph.ExecuteNode(ctx, workers, node, state, logger, metrics)
		emitProgress(emit, node, step, state)

		if node == graph.FarewellAgentKey || node == graph.GreetingAgentKey {
			break
		}

		state = d.Supervisor.Run(ctx, state, req.QueryType)
		emitProgress(emit, "supervisor", step, state)

		if graph.SupervisorShouldContinue(state) == graph.End {
			break
		}
	}

	if err := persist(ctx, d.ContextStore, req, state, prior); err != nil {
		logger.Warn(ctx, "engine: failed to persist context", "conversation_id", req.ConversationID, "error", err.Error())
	}
	if d.Checkpoints != nil {
		if err := d.Checkpoints.SaveCheckpoint(ctx, req.ConversationID, state); err != nil {
			logger.Warn(ctx, "engine: failed to save checkpoint", "conversation_id", req.ConversationID, "error", err.Error())
		}
	}

	return InvokeResult{
		Response:              lastAssistantMessage(state),
		State:                 state,
		HumanHandoffRequested: state.HumanHandoffRequested,
	}, nil
}

// orchestrate implements the orchestrator node: bypass evaluation first
// (spec.md §4.6), else the C5 intent router cascade.
func orchestrate(ctx context.Context, reg *tenant.Registry, r *router.Router, state graph.State, message string) graph.State {
	out := state

	if _, target, ok := reg.EvaluateBypass(state.UserPhone, ""); ok {
		out.NextAgent = target
		out.BypassCount++
		return out
	}

	ac := analyzer.AnalysisContext{
		ConversationID:  state.ConversationID,
		OrganizationID:  state.OrganizationID,
		PreviousAgent:   state.CurrentAgent,
		ValidIntents:    validIntents(reg),
		IntentToAgent:   reg.IntentToAgentMap(),
		RecentMessages:  recentMessages(state, 10),
		LastBotResponse: lastAssistantMessage(state),
	}

	flowData := validate.ConversationData{
		PreviousAgent:   state.CurrentAgent,
		LastUserMessage: message,
	}

	result := r.Route(ctx, message, ac, flowData)
	out.NextAgent = targetAgent(result, reg)
	return out
}

func targetAgent(result intent.Result, reg *tenant.Registry) string {
	if result.TargetAgent != "" {
		return result.TargetAgent
	}
	if agent, ok := reg.IntentToAgent(result.PrimaryIntent); ok {
		return agent
	}
	return ""
}

func validIntents(reg *tenant.Registry) []string {
	m := reg.IntentToAgentMap()
	out := make([]string, 0, len(m))
	for in := range m {
		out = append(out, in)
	}
	return out
}

func recentMessages(state graph.State, limit int) []analyzer.RecentMessage {
	start := 0
	if len(state.Messages) > limit {
		start = len(state.Messages) - limit
	}
	out := make([]analyzer.RecentMessage, 0, len(state.Messages)-start)
	for _, m := range state.Messages[start:] {
		out = append(out, analyzer.RecentMessage{Sender: m.Role, Content: m.Content})
	}
	return out
}

func buildInitialState(req InvokeRequest, prior *convctx.Context) graph.State {
	state := graph.State{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		UserPhone:      req.UserPhone,
		OrganizationID: req.OrganizationID,
	}
	if prior != nil {
		state.CurrentAgent = prior.LastAgent
		if prior.LastUserMessage != "" {
			state.Messages = append(state.Messages, graph.Message{Role: "user", Content: prior.LastUserMessage})
		}
		if prior.LastBotResponse != "" {
			state.Messages = append(state.Messages, graph.Message{Role: "assistant", Content: prior.LastBotResponse, AgentName: prior.LastAgent})
		}
	}
	state.Messages = append(state.Messages, graph.Message{Role: "user", Content: req.Message})
	return state
}

func persist(ctx context.Context, store convctx.Store, req InvokeRequest, state graph.State, prior *convctx.Context) error {
	ctxRecord := prior.Clone()
	if ctxRecord == nil {
		ctxRecord = &convctx.Context{ConversationID: req.ConversationID}
	}
	ctxRecord.OrganizationID = req.OrganizationID
	ctxRecord.UserPhone = req.UserPhone
	ctxRecord.LastUserMessage = req.Message
	ctxRecord.LastBotResponse = lastAssistantMessage(state)
	ctxRecord.LastAgent = state.CurrentAgent
	ctxRecord.Touch(time.Now())

	if err := store.SaveContext(ctx, ctxRecord); err != nil {
		return err
	}
	if err := store.SaveMessage(ctx, &convctx.Message{
		ConversationID: req.ConversationID,
		Sender:         convctx.SenderUser,
		Content:        req.Message,
	}); err != nil {
		return err
	}
	return store.SaveMessage(ctx, &convctx.Message{
		ConversationID: req.ConversationID,
		Sender:         convctx.SenderAssistant,
		Content:        ctxRecord.LastBotResponse,
		AgentName:      state.CurrentAgent,
	})
}

func lastAssistantMessage(state graph.State) string {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == "assistant" {
			return state.Messages[i].Content
		}
	}
	return ""
}

func emitProgress(emit func(StreamEvent), node string, step int, state graph.State) {
	if emit == nil {
		return
	}
	emit(StreamEvent{
		Type:        StreamEventProgress,
		CurrentNode: node,
		StepCount:   step,
		Preview:     previewOf(lastAssistantMessage(state)),
	})
}

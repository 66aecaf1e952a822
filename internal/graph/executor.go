package graph

import (
	"context"
	"fmt"

	"github.com/excelencia-digital/orquestador/internal/telemetry"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// ApologyMessage is the user-facing string substituted for any worker
// failure (spec.md §7: "a single short apology string suitable for the
// channel; no stack traces").
const ApologyMessage = "Lo siento, ocurrió un problema al procesar tu mensaje. Un agente humano te contactará en breve."

// FarewellAgentKey and GreetingAgentKey are the structurally-special
// workers the executor recognizes directly: both have an unconditional
// edge straight to END, never through the supervisor (spec.md §4.9 step 6
// and §4.11's greeting short-circuit).
const (
	FarewellAgentKey = "farewell_agent"
	GreetingAgentKey = "greeting_agent"
)

// Registry resolves an agent key to its Worker instance. The agent factory
// (package agentfactory) is the production implementation.
type Registry interface {
	Lookup(agentKey string) (worker.Worker, bool)
}

// ExecuteNode implements the C9 Node Executor (spec.md §4.9): it resolves
// the named worker, invokes it with a flattened view of s, and merges its
// result back into a new State via the §3 reducers. It never panics: a
// missing worker or an uncaught worker error both degrade to an apology
// message plus ErrorCount+1, never a hard failure of the turn.
func ExecuteNode(ctx context.Context, reg Registry, agentKey string, s State, logger telemetry.Logger, metrics telemetry.Metrics) State {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	w, ok := reg.Lookup(agentKey)
	if !ok {
		logger.Warn(ctx, "node executor: worker not found", "agent", agentKey)
		metrics.IncCounter("graph.executor.missing_worker", 1)
		return appendApology(s, agentKey)
	}

	out := s.Clone()
	out.CurrentAgent = agentKey
	out.AgentHistory = append(out.AgentHistory, agentKey)

	result, err := invoke(ctx, w, s.LastUserMessage(), toWorkerState(s))
	if err != nil {
		logger.Warn(ctx, "node executor: worker failed", "agent", agentKey, "error", err.Error())
		metrics.IncCounter("graph.executor.worker_error", 1)
		return appendApology(out, agentKey)
	}

	out = mergeResult(out, result)

	if agentKey == FarewellAgentKey || agentKey == GreetingAgentKey {
		out.IsComplete = true
	}

	metrics.IncCounter("graph.executor.success", 1)
	return out
}

// invoke catches any panic escaping the worker, converting it to an error
// (spec.md §4.9 step 7: "Any uncaught exception is caught here").
func invoke(ctx context.Context, w worker.Worker, message string, ws worker.State) (result worker.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("worker panicked: %v", rec)
		}
	}()
	return w.Process(ctx, message, ws)
}

func appendApology(s State, agentKey string) State {
	out := s.Clone()
	out.Messages = append(out.Messages, Message{Role: "assistant", Content: ApologyMessage, AgentName: agentKey})
	out.ErrorCount++
	return out
}

// toWorkerState flattens graph.State into the read-only worker.State view
// (spec.md §4.9 step 2).
func toWorkerState(s State) worker.State {
	messages := make([]worker.Message, len(s.Messages))
	for i, m := range s.Messages {
		messages[i] = worker.Message{Role: m.Role, Content: m.Content}
	}
	return worker.State{
		ConversationID:       s.ConversationID,
		OrganizationID:       s.OrganizationID,
		UserID:               s.UserID,
		UserPhone:            s.UserPhone,
		Messages:             messages,
		AgentHistory:         append([]string(nil), s.AgentHistory...),
		RetrievedData:        s.RetrievedData,
		RoutingAttempts:      s.RoutingAttempts,
		SupervisorRetryCount: s.SupervisorRetryCount,
		ErrorCount:           s.ErrorCount,
	}
}

// mergeResult applies the §3 reducers to fold a worker.Result into s,
// producing the next State (spec.md §4.9 step 5).
func mergeResult(s State, r worker.Result) State {
	out := s

	for _, m := range r.Messages {
		out.Messages = append(out.Messages, Message{Role: m.Role, Content: m.Content, AgentName: out.CurrentAgent})
	}

	if len(r.RetrievedData) > 0 {
		if out.RetrievedData == nil {
			out.RetrievedData = make(map[string]any, len(r.RetrievedData))
		}
		for k, v := range r.RetrievedData {
			out.RetrievedData[k] = v
		}
	}

	if r.IsComplete {
		out.IsComplete = true
	}
	out.ErrorCount += r.ErrorDelta

	if r.RAGMetrics != nil {
		out.RAGMetrics = r.RAGMetrics
	}
	if r.InteractiveResponse != nil {
		out.InteractiveResponse = r.InteractiveResponse
	}

	return out
}

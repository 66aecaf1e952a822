// Package builtinagents provides the trivial canned-response workers the
// graph needs to be end-to-end runnable without a real business integration:
// greeting_agent, fallback_agent, and farewell_agent (spec.md §4.9/§4.11
// treat greeting/farewell as structurally special; SPEC_FULL.md §10 adds
// this package so S1-style scenarios run without external collaborators).
package builtinagents

import (
	"context"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// Agent keys for the three builtin workers.
const (
	GreetingAgentKey = "greeting_agent"
	FallbackAgentKey = "fallback_agent"
	FarewellAgentKey = "farewell_agent"
)

// RegisterDefaults wires the three builtin workers into f under their
// canonical agent keys.
func RegisterDefaults(f *agentfactory.Factory) {
	f.Register(GreetingAgentKey, func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return worker.Func(greet), nil
	})
	f.Register(FallbackAgentKey, func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return worker.Func(fallback), nil
	})
	f.Register(FarewellAgentKey, func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return worker.Func(farewell), nil
	})
}

func greet(ctx context.Context, message string, state worker.State) (worker.Result, error) {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "¡Hola! Soy tu asistente virtual. ¿En qué puedo ayudarte hoy?",
		}},
	}, nil
}

func fallback(ctx context.Context, message string, state worker.State) (worker.Result, error) {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "No estoy seguro de haber entendido tu consulta. ¿Podrías darme más detalles?",
		}},
	}, nil
}

func farewell(ctx context.Context, message string, state worker.State) (worker.Result, error) {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "¡Gracias por contactarnos! Que tengas un excelente día.",
		}},
		IsComplete: true,
	}, nil
}

package supervisor

import (
	"context"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

// Supervisor wires the evaluator, flow controller and optional enhancer
// into the single call the engine's supervisor node makes per visit.
type Supervisor struct {
	Enhancer *Enhancer
}

// New constructs a Supervisor. enhancer may be nil (no enhancement stage).
func New(enhancer *Enhancer) *Supervisor {
	return &Supervisor{Enhancer: enhancer}
}

// Run evaluates the last worker response in s, applies flow control, and
// optionally enhances the last assistant message in place. It returns the
// next State; graph.SupervisorShouldContinue then decides the edge.
func (sup *Supervisor) Run(ctx context.Context, s graph.State, queryType string) graph.State {
	userMsg, workerResp, agentName := lastExchange(s)

	eval := Evaluate(EvaluateInput{
		UserMessage:    userMsg,
		WorkerResponse: workerResp,
		AgentName:      agentName,
		QueryType:      queryType,
		State:          s,
	})

	out := ApplyFlowControl(s, eval, recentUserMessages(s, 2))

	if eval.SuggestedAction == ActionEnhance && sup.Enhancer != nil && len(out.Messages) > 0 {
		last := len(out.Messages) - 1
		if out.Messages[last].Role == "assistant" {
			out.Messages[last].Content = sup.Enhancer.Enhance(ctx, out.Messages[last].Content)
		}
	}

	return out
}

func lastExchange(s graph.State) (userMessage, workerResponse, agentName string) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if workerResponse == "" && s.Messages[i].Role == "assistant" {
			workerResponse = s.Messages[i].Content
			agentName = s.Messages[i].AgentName
		}
		if userMessage == "" && s.Messages[i].Role == "user" {
			userMessage = s.Messages[i].Content
		}
		if userMessage != "" && workerResponse != "" {
			break
		}
	}
	return userMessage, workerResponse, agentName
}

func recentUserMessages(s graph.State, limit int) []string {
	var out []string
	for i := len(s.Messages) - 1; i >= 0 && len(out) < limit; i-- {
		if s.Messages[i].Role == "user" {
			out = append([]string{s.Messages[i].Content}, out...)
		}
	}
	return out
}

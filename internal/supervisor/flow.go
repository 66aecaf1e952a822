package supervisor

import (
	"strings"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

var frustrationKeywords = []string{
	"no entiendes", "esto no funciona", "es un desastre", "pésimo servicio",
	"quiero hablar con una persona", "ya te dije", "otra vez lo mismo",
}

// ApplyFlowControl implements the C10b Flow Controller (spec.md §4.10b): it
// consumes eval and the last two user messages and mutates s (a copy is
// returned) to reflect the routing decision.
func ApplyFlowControl(s graph.State, eval graph.Evaluation, recentUserMessages []string) graph.State {
	out := s
	out.SupervisorEvaluation = &eval

	if s.ErrorCount >= graph.ErrorCeiling ||
		s.SupervisorRetryCount >= graph.MaxSupervisorRetries ||
		eval.OverallScore < 0.3 ||
		hasFrustration(recentUserMessages) {
		out.HumanHandoffRequested = true
		return out
	}

	if eval.SuggestedAction == ActionAccept || eval.SuggestedAction == ActionStopRetry || eval.SuggestedAction == ActionEnhance || eval.OverallScore >= 0.7 {
		out.IsComplete = true
		return out
	}

	if eval.SuggestedAction == ActionReRoute && reRouteUseful(eval, s.AgentHistory) {
		out.NeedsReRouting = true
		out.SupervisorRetryCount++
		return out
	}

	out.IsComplete = true
	return out
}

func reRouteUseful(eval graph.Evaluation, history []string) bool {
	return eval.RAGHadResults && !lastTwoEqual(history)
}

// hasFrustration checks the last two user messages for frustration markers
// (spec.md §4.10b).
func hasFrustration(recentUserMessages []string) bool {
	n := len(recentUserMessages)
	start := 0
	if n > 2 {
		start = n - 2
	}
	for _, msg := range recentUserMessages[start:] {
		lower := strings.ToLower(msg)
		for _, kw := range frustrationKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

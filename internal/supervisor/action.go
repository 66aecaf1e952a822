package supervisor

import "github.com/excelencia-digital/orquestador/internal/graph"

// decideAction implements the C10c Action Decider (spec.md §4.10c), invoked
// from within Evaluate before the flow controller runs.
func decideAction(eval graph.Evaluation, s graph.State) string {
	if eval.Category == CategoryCompleteWithData {
		return ActionAccept
	}
	if s.SupervisorRetryCount >= 2 {
		return ActionAccept
	}
	if !eval.RAGHadResults {
		return ActionStopRetry
	}
	if lastTwoEqual(s.AgentHistory) {
		return ActionStopRetry
	}
	if eval.Category == CategoryFallbackResponse && eval.RAGHadResults {
		return ActionReRoute
	}
	return ActionAccept
}

func lastTwoEqual(history []string) bool {
	n := len(history)
	return n >= 2 && history[n-1] == history[n-2]
}

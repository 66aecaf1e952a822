package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

func TestApplyFlowControlHandoffOnErrorCeiling(t *testing.T) {
	s := graph.State{ErrorCount: graph.ErrorCeiling}
	out := ApplyFlowControl(s, graph.Evaluation{SuggestedAction: ActionAccept, OverallScore: 0.9}, nil)
	assert.True(t, out.HumanHandoffRequested)
	assert.False(t, out.IsComplete)
}

func TestApplyFlowControlHandoffOnSupervisorRetryCeiling(t *testing.T) {
	s := graph.State{SupervisorRetryCount: graph.MaxSupervisorRetries}
	out := ApplyFlowControl(s, graph.Evaluation{SuggestedAction: ActionAccept}, nil)
	assert.True(t, out.HumanHandoffRequested)
}

func TestApplyFlowControlHandoffOnLowScore(t *testing.T) {
	out := ApplyFlowControl(graph.State{}, graph.Evaluation{OverallScore: 0.1, SuggestedAction: ActionReRoute}, nil)
	assert.True(t, out.HumanHandoffRequested)
}

func TestApplyFlowControlHandoffOnFrustration(t *testing.T) {
	recent := []string{"ya te dije que no funciona nada"}
	out := ApplyFlowControl(graph.State{}, graph.Evaluation{OverallScore: 0.9, SuggestedAction: ActionAccept}, recent)
	assert.True(t, out.HumanHandoffRequested)
}

func TestApplyFlowControlAcceptEndsConversation(t *testing.T) {
	out := ApplyFlowControl(graph.State{}, graph.Evaluation{OverallScore: 0.5, SuggestedAction: ActionAccept}, nil)
	assert.True(t, out.IsComplete)
	assert.False(t, out.NeedsReRouting)
}

func TestApplyFlowControlHighScoreEndsRegardlessOfAction(t *testing.T) {
	out := ApplyFlowControl(graph.State{}, graph.Evaluation{OverallScore: 0.85, SuggestedAction: ActionReRoute, RAGHadResults: true}, nil)
	assert.True(t, out.IsComplete)
}

func TestApplyFlowControlReRoutesAndIncrementsRetryCount(t *testing.T) {
	eval := graph.Evaluation{OverallScore: 0.5, SuggestedAction: ActionReRoute, RAGHadResults: true}
	s := graph.State{AgentHistory: []string{"credit_agent", "ecommerce_agent"}, SupervisorRetryCount: 1}
	out := ApplyFlowControl(s, eval, nil)
	assert.True(t, out.NeedsReRouting)
	assert.Equal(t, 2, out.SupervisorRetryCount)
	assert.False(t, out.IsComplete)
}

func TestApplyFlowControlReRouteUselessFallsThroughToComplete(t *testing.T) {
	eval := graph.Evaluation{OverallScore: 0.5, SuggestedAction: ActionReRoute, RAGHadResults: false}
	out := ApplyFlowControl(graph.State{}, eval, nil)
	assert.True(t, out.IsComplete)
}

func TestApplyFlowControlSetsSupervisorEvaluation(t *testing.T) {
	eval := graph.Evaluation{OverallScore: 0.5, SuggestedAction: ActionAccept}
	out := ApplyFlowControl(graph.State{}, eval, nil)
	if assert.NotNil(t, out.SupervisorEvaluation) {
		assert.Equal(t, eval.OverallScore, out.SupervisorEvaluation.OverallScore)
	}
}

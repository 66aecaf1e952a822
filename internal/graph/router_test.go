package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteToAgentTerminalShortCircuits(t *testing.T) {
	enabled := EnabledSet{"credit_agent": {}}

	assert.Equal(t, End, RouteToAgent(State{IsComplete: true}, enabled, "fallback_agent"))
	assert.Equal(t, End, RouteToAgent(State{HumanHandoffRequested: true}, enabled, "fallback_agent"))
}

func TestRouteToAgentFallsBackWhenNextAgentEmpty(t *testing.T) {
	enabled := EnabledSet{"credit_agent": {}}
	got := RouteToAgent(State{}, enabled, "fallback_agent")
	assert.Equal(t, "fallback_agent", got)
}

func TestRouteToAgentFallsBackWhenNextAgentNotEnabled(t *testing.T) {
	enabled := EnabledSet{"credit_agent": {}}
	got := RouteToAgent(State{NextAgent: "ecommerce_agent"}, enabled, "fallback_agent")
	assert.Equal(t, "fallback_agent", got)
}

func TestRouteToAgentRoutesToEnabledNextAgent(t *testing.T) {
	enabled := EnabledSet{"credit_agent": {}}
	got := RouteToAgent(State{NextAgent: "credit_agent"}, enabled, "fallback_agent")
	assert.Equal(t, "credit_agent", got)
}

func TestSupervisorShouldContinueTerminalFlags(t *testing.T) {
	assert.Equal(t, End, SupervisorShouldContinue(State{IsComplete: true}))
	assert.Equal(t, End, SupervisorShouldContinue(State{HumanHandoffRequested: true}))
}

func TestSupervisorShouldContinueErrorCeiling(t *testing.T) {
	s := State{ErrorCount: ErrorCeiling, NeedsReRouting: true}
	assert.Equal(t, End, SupervisorShouldContinue(s))
}

func TestSupervisorShouldContinueLoopsWithinBudget(t *testing.T) {
	s := State{NeedsReRouting: true, RoutingAttempts: MaxRoutingAttempts - 1, SupervisorRetryCount: MaxSupervisorRetries - 1}
	assert.Equal(t, "continue", SupervisorShouldContinue(s))
}

func TestSupervisorShouldContinueStopsAtRoutingAttemptCeiling(t *testing.T) {
	s := State{NeedsReRouting: true, RoutingAttempts: MaxRoutingAttempts, SupervisorRetryCount: 0}
	assert.Equal(t, End, SupervisorShouldContinue(s))
}

func TestSupervisorShouldContinueStopsAtRetryCeiling(t *testing.T) {
	s := State{NeedsReRouting: true, RoutingAttempts: 0, SupervisorRetryCount: MaxSupervisorRetries}
	assert.Equal(t, End, SupervisorShouldContinue(s))
}

func TestSupervisorShouldContinueDefaultsToEnd(t *testing.T) {
	assert.Equal(t, End, SupervisorShouldContinue(State{}))
}

package graph

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSupervisorShouldContinueLoopBoundProperty verifies spec.md §8's loop-bound
// property: no sequence of SupervisorShouldContinue decisions ever authorizes
// more than MaxRoutingAttempts*MaxSupervisorRetries worker invocations, since a
// "continue" verdict is only possible while both attempt counters are still
// under their ceilings.
func TestSupervisorShouldContinueLoopBoundProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("continue is never returned once either counter reaches its ceiling", prop.ForAll(
		func(routingAttempts, supervisorRetryCount, errorCount int) bool {
			s := State{
				NeedsReRouting:       true,
				RoutingAttempts:      routingAttempts,
				SupervisorRetryCount: supervisorRetryCount,
				ErrorCount:           errorCount,
			}
			got := SupervisorShouldContinue(s)

			atCeiling := routingAttempts >= MaxRoutingAttempts ||
				supervisorRetryCount >= MaxSupervisorRetries ||
				errorCount >= ErrorCeiling
			if atCeiling {
				return got == End
			}
			return got == "continue"
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
	))

	properties.Property("a terminal flag always ends the turn regardless of counters", prop.ForAll(
		func(routingAttempts, supervisorRetryCount int, handoff bool) bool {
			s := State{
				IsComplete:            !handoff,
				HumanHandoffRequested: handoff,
				NeedsReRouting:        true,
				RoutingAttempts:       routingAttempts,
				SupervisorRetryCount:  supervisorRetryCount,
			}
			return SupervisorShouldContinue(s) == End
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// TestRouteToAgentEnabledSetProperty verifies spec.md §8's tenant-isolation
// routing property: RouteToAgent never returns an agent key outside the
// caller-supplied enabled set (other than the fallback agent itself, which is
// assumed enabled by construction).
func TestRouteToAgentEnabledSetProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	agentKeys := []string{"credit_agent", "ecommerce_agent", "pharmacy_agent", "support_agent", ""}

	properties.Property("never routes to a next_agent outside the enabled set", prop.ForAll(
		func(nextAgent string, includeInEnabled bool) bool {
			enabled := EnabledSet{"fallback_agent": {}}
			if includeInEnabled && nextAgent != "" {
				enabled["dummy-filler"] = struct{}{} // keep the set non-trivial either way
				enabled[nextAgent] = struct{}{}
			}
			got := RouteToAgent(State{NextAgent: nextAgent}, enabled, "fallback_agent")

			if got == End {
				return false // NextAgent alone never yields End
			}
			return enabled.Contains(got)
		},
		gen.OneConstOf(toAny(agentKeys)...),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func toAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

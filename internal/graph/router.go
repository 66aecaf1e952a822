package graph

// MaxRoutingAttempts and MaxSupervisorRetries hard-cap the conversation loop
// at 9 worker invocations per turn (spec.md §5 "Backpressure").
const (
	MaxRoutingAttempts   = 3
	MaxSupervisorRetries = 3
)

// ErrorCeiling is the error-count terminal threshold (spec.md §4.8 and §4.10).
const ErrorCeiling = 3

// EnabledSet is the effective enabled-agent set for a request: tenant
// registry enabled agents intersected with the global enabled-agents list
// (spec.md §4.8: "tenant ∩ global").
type EnabledSet map[string]struct{}

// Contains reports whether agentKey is in the effective enabled set.
func (s EnabledSet) Contains(agentKey string) bool {
	_, ok := s[agentKey]
	return ok
}

// RouteToAgent is the C8 orchestrator conditional edge (spec.md §4.8). It is
// pure and side-effect-free: given the current state and the effective
// enabled set, it returns either End or the name of the node to visit next.
func RouteToAgent(s State, enabled EnabledSet, fallbackAgent string) string {
	if s.IsComplete || s.HumanHandoffRequested {
		return End
	}
	if s.NextAgent == "" {
		return fallbackAgent
	}
	if !enabled.Contains(s.NextAgent) {
		return fallbackAgent
	}
	return s.NextAgent
}

// SupervisorShouldContinue is the C8 supervisor conditional edge (spec.md
// §4.8).
func SupervisorShouldContinue(s State) string {
	if s.IsComplete || s.HumanHandoffRequested {
		return End
	}
	if s.ErrorCount >= ErrorCeiling {
		return End
	}
	if s.NeedsReRouting && s.RoutingAttempts < MaxRoutingAttempts && s.SupervisorRetryCount < MaxSupervisorRetries {
		return "continue"
	}
	return End
}

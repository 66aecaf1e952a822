// Package validate implements the Intent Validator (C3): two fixed tables
// baked into the binary plus the pure functions spec.md §4.3 describes.
package validate

import (
	"strings"

	"github.com/excelencia-digital/orquestador/internal/intent"
)

// AgentToIntent corrects the common LLM error of returning an agent key
// instead of an intent name, mapping the agent key back to the intent it
// implies.
var AgentToIntent = map[string]string{
	"greeting_agent":    "greeting",
	"farewell_agent":    "farewell",
	"credit_agent":      "credit_inquiry",
	"ecommerce_agent":   "product_inquiry",
	"pharmacy_agent":    "pharmacy_inquiry",
	"support_agent":     "support_request",
	"fallback_agent":    intent.FallbackIntent,
}

// FlowAgents are agents known to own a multi-turn flow. While such an agent
// owns the last bot turn, routing pins to it rather than re-classifying.
var FlowAgents = map[string]bool{
	"credit_agent":    true,
	"ecommerce_agent": true,
	"pharmacy_agent":  true,
}

// Non-flow-owning system agents excluded from the pin-to-flow check even if
// they somehow ended up recorded as a previous agent.
var systemAgents = map[string]bool{
	"orchestrator": true,
	"supervisor":   true,
}

// FallbackConfidence is used whenever validate() has to fall back.
const FallbackConfidence = 0.4

// FlowContinuationConfidence is the fixed confidence for a flow-continuation
// result (spec.md §4.3).
const FlowContinuationConfidence = 0.95

// KeywordFallback is a small fixed table used by HandleFollowUp when no
// previous agent is known. It is intentionally tiny — a true catch-all, not
// a replacement for the C4 keyword analyzer.
var KeywordFallback = map[string]string{
	"saldo":    "credit_agent",
	"pago":     "credit_agent",
	"producto": "ecommerce_agent",
	"pedido":   "ecommerce_agent",
	"receta":   "pharmacy_agent",
	"remedio":  "pharmacy_agent",
}

// FallbackAgent is returned by HandleFollowUp when nothing else matches.
const FallbackAgent = "fallback_agent"

// ConversationData is the minimal view of Graph State the validator needs;
// it deliberately mirrors only the fields spec.md §4.3 references rather
// than depending on the full graph package (avoids an import cycle between
// graph and intent/validate).
type ConversationData struct {
	PreviousAgent string
	LastUserMessage string
}

// Validate implements validate(intent, valid_intents): identity if intent is
// a member of validIntents; else try AgentToIntent; else fall back.
func Validate(in string, validIntents []string) (resultIntent string, confidence float64, reason string) {
	for _, v := range validIntents {
		if v == in {
			return in, 1.0, ""
		}
	}
	if mapped, ok := AgentToIntent[in]; ok {
		return mapped, 0.8, "corrected agent key to intent"
	}
	return intent.FallbackIntent, FallbackConfidence, "unrecognized intent: " + in
}

// CheckActiveFlow implements check_active_flow: if the previous agent owns a
// multi-turn flow and is not a system agent, routing pins to it.
func CheckActiveFlow(data ConversationData) *intent.Result {
	agent := data.PreviousAgent
	if agent == "" || systemAgents[agent] || !FlowAgents[agent] {
		return nil
	}
	return &intent.Result{
		PrimaryIntent: "flow_continuation",
		Confidence:    FlowContinuationConfidence,
		TargetAgent:   agent,
		Method:        intent.MethodFlowContinuation,
		Reasoning:     "previous agent owns an active multi-turn flow",
	}
}

// MapIntentToAgent implements map_intent_to_agent(intent) -> agent_key.
// Intents that don't carry an explicit mapping route to the fallback agent.
func MapIntentToAgent(in string, intentToAgent map[string]string) string {
	if agent, ok := intentToAgent[in]; ok {
		return agent
	}
	return FallbackAgent
}

// HandleFollowUp implements handle_follow_up: prefer a known previous agent,
// else keyword-match against the small fixed table, else the fallback
// agent.
func HandleFollowUp(data ConversationData) string {
	if data.PreviousAgent != "" && !systemAgents[data.PreviousAgent] {
		return data.PreviousAgent
	}
	lower := strings.ToLower(data.LastUserMessage)
	for kw, agent := range KeywordFallback {
		if strings.Contains(lower, kw) {
			return agent
		}
	}
	return FallbackAgent
}

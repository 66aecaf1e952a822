package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/excelencia-digital/orquestador/internal/intent"
)

func TestValidateIdentityWhenInValidIntents(t *testing.T) {
	result, confidence, reason := Validate("credit_inquiry", []string{"credit_inquiry", "greeting"})
	assert.Equal(t, "credit_inquiry", result)
	assert.Equal(t, 1.0, confidence)
	assert.Empty(t, reason)
}

func TestValidateCorrectsAgentKeyToIntent(t *testing.T) {
	result, confidence, reason := Validate("credit_agent", []string{"credit_inquiry"})
	assert.Equal(t, "credit_inquiry", result)
	assert.Equal(t, 0.8, confidence)
	assert.NotEmpty(t, reason)
}

func TestValidateFallsBackOnUnrecognizedIntent(t *testing.T) {
	result, confidence, _ := Validate("unknown_thing", []string{"credit_inquiry"})
	assert.Equal(t, intent.FallbackIntent, result)
	assert.Equal(t, FallbackConfidence, confidence)
}

func TestCheckActiveFlowPinsToFlowOwningAgent(t *testing.T) {
	got := CheckActiveFlow(ConversationData{PreviousAgent: "credit_agent"})
	if assert.NotNil(t, got) {
		assert.Equal(t, "credit_agent", got.TargetAgent)
		assert.Equal(t, intent.MethodFlowContinuation, got.Method)
		assert.Equal(t, FlowContinuationConfidence, got.Confidence)
	}
}

func TestCheckActiveFlowIgnoresSystemAgents(t *testing.T) {
	assert.Nil(t, CheckActiveFlow(ConversationData{PreviousAgent: "orchestrator"}))
}

func TestCheckActiveFlowIgnoresNonFlowAgents(t *testing.T) {
	assert.Nil(t, CheckActiveFlow(ConversationData{PreviousAgent: "greeting_agent"}))
}

func TestCheckActiveFlowNilWhenNoPreviousAgent(t *testing.T) {
	assert.Nil(t, CheckActiveFlow(ConversationData{}))
}

func TestMapIntentToAgentFallsBackWhenUnmapped(t *testing.T) {
	assert.Equal(t, FallbackAgent, MapIntentToAgent("unmapped_intent", map[string]string{"credit_inquiry": "credit_agent"}))
	assert.Equal(t, "credit_agent", MapIntentToAgent("credit_inquiry", map[string]string{"credit_inquiry": "credit_agent"}))
}

func TestHandleFollowUpPrefersPreviousAgent(t *testing.T) {
	got := HandleFollowUp(ConversationData{PreviousAgent: "credit_agent", LastUserMessage: "producto nuevo"})
	assert.Equal(t, "credit_agent", got)
}

func TestHandleFollowUpIgnoresSystemPreviousAgent(t *testing.T) {
	got := HandleFollowUp(ConversationData{PreviousAgent: "supervisor", LastUserMessage: "quiero ver un producto"})
	assert.Equal(t, "ecommerce_agent", got)
}

func TestHandleFollowUpKeywordFallback(t *testing.T) {
	got := HandleFollowUp(ConversationData{LastUserMessage: "necesito saber mi saldo"})
	assert.Equal(t, "credit_agent", got)
}

func TestHandleFollowUpFinalFallback(t *testing.T) {
	got := HandleFollowUp(ConversationData{LastUserMessage: "algo totalmente distinto"})
	assert.Equal(t, FallbackAgent, got)
}

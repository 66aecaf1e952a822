package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabledAgentsSortedByPriorityThenKey(t *testing.T) {
	agents := map[string]*AgentConfig{
		"b_agent": {AgentKey: "b_agent", Enabled: true, Priority: 50},
		"a_agent": {AgentKey: "a_agent", Enabled: true, Priority: 50},
		"c_agent": {AgentKey: "c_agent", Enabled: true, Priority: 90},
		"disabled_agent": {AgentKey: "disabled_agent", Enabled: false, Priority: 100},
	}
	r := NewRegistry("org-1", agents, nil, nil, "")
	sorted := r.EnabledAgentsSorted()

	require.Len(t, sorted, 3)
	assert.Equal(t, "c_agent", sorted[0].AgentKey)
	assert.Equal(t, "a_agent", sorted[1].AgentKey)
	assert.Equal(t, "b_agent", sorted[2].AgentKey)
}

func TestIntentToAgentPicksHighestPriorityOwner(t *testing.T) {
	agents := map[string]*AgentConfig{
		"low_priority": {
			AgentKey: "low_priority", Enabled: true, Priority: 10,
			IntentPatterns: []IntentPattern{{Pattern: "credit_inquiry"}},
		},
		"high_priority": {
			AgentKey: "high_priority", Enabled: true, Priority: 90,
			IntentPatterns: []IntentPattern{{Pattern: "credit_inquiry"}},
		},
	}
	r := NewRegistry("org-1", agents, nil, nil, "")

	agent, ok := r.IntentToAgent("credit_inquiry")
	require.True(t, ok)
	assert.Equal(t, "high_priority", agent)
}

func TestBypassTargetAgentConsumedOnce(t *testing.T) {
	r := NewRegistry("org-1", map[string]*AgentConfig{}, nil, nil, "credit_agent")

	target, ok := r.ConsumeBypassTargetAgent()
	require.True(t, ok)
	assert.Equal(t, "credit_agent", target)

	_, ok = r.ConsumeBypassTargetAgent()
	assert.False(t, ok)
}

func TestEvaluateBypassPrefersPreRouterHintOverRules(t *testing.T) {
	rules := []BypassRule{
		{RuleName: "r1", RuleType: BypassRuleTypePhoneNumber, Pattern: "549264*", TargetAgent: "ecommerce_agent", Enabled: true, Priority: 100},
	}
	r := NewRegistry("org-1", map[string]*AgentConfig{}, nil, rules, "credit_agent")

	rule, target, matched := r.EvaluateBypass("5492644000000", "")
	assert.Nil(t, rule)
	assert.Equal(t, "credit_agent", target)
	assert.True(t, matched)
}

func TestEvaluateBypassEvaluatesRulesByPriorityFirstMatch(t *testing.T) {
	rules := []BypassRule{
		{RuleName: "low", RuleType: BypassRuleTypePhoneNumber, Pattern: "549264*", TargetAgent: "ecommerce_agent", Enabled: true, Priority: 10},
		{RuleName: "high", RuleType: BypassRuleTypePhoneNumberList, PhoneNumbers: []string{"5492644000000"}, TargetAgent: "credit_agent", Enabled: true, Priority: 90},
	}
	r := NewRegistry("org-1", map[string]*AgentConfig{}, nil, rules, "")

	rule, target, matched := r.EvaluateBypass("5492644000000", "")
	require.True(t, matched)
	require.NotNil(t, rule)
	assert.Equal(t, "high", rule.RuleName)
	assert.Equal(t, "credit_agent", target)
}

func TestEvaluateBypassSkipsDisabledRules(t *testing.T) {
	rules := []BypassRule{
		{RuleName: "disabled", RuleType: BypassRuleTypePhoneNumber, Pattern: "549264*", TargetAgent: "ecommerce_agent", Enabled: false, Priority: 100},
	}
	r := NewRegistry("org-1", map[string]*AgentConfig{}, nil, rules, "")

	_, _, matched := r.EvaluateBypass("5492644000000", "")
	assert.False(t, matched)
}

func TestEvaluateBypassWhatsAppPhoneNumberID(t *testing.T) {
	rules := []BypassRule{
		{RuleName: "wa", RuleType: BypassRuleTypeWhatsAppPhoneID, PhoneNumberID: "12345", TargetAgent: "support_agent", Enabled: true, Priority: 10},
	}
	r := NewRegistry("org-1", map[string]*AgentConfig{}, nil, rules, "")

	_, target, matched := r.EvaluateBypass("000", "12345")
	require.True(t, matched)
	assert.Equal(t, "support_agent", target)
}

func TestMatchPhonePatternWildcard(t *testing.T) {
	assert.True(t, matchPhonePattern("549264*", "5492641234567"))
	assert.False(t, matchPhonePattern("549264*", "5491111111111"))
	assert.True(t, matchPhonePattern("5492641234567", "5492641234567"))
	assert.False(t, matchPhonePattern("", "5492641234567"))
}

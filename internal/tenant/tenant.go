// Package tenant implements the Tenant Registry & Bypass evaluator (C6,
// spec.md §4.6 and §3). Registries are ephemeral, built per request from
// durable config, and discarded afterward.
package tenant

import (
	"sort"
	"strings"
)

// IntentPattern is a single intent-matching rule attached to an agent.
type IntentPattern struct {
	Pattern        string
	Weight         float64
	RequiresContext bool
}

// AgentConfig is one entry in the registry's agent map (spec.md §3).
type AgentConfig struct {
	AgentKey       string
	DisplayName    string
	ClassRef       string // dotted.path.ClassName for type=custom agents (C7)
	Enabled        bool
	Priority       int // [0, 100]
	DomainKey      string
	Keywords       map[string]struct{}
	IntentPatterns []IntentPattern
	Config         map[string]any
}

// Domain is a registry entity referenced by AgentConfig.DomainKey
// (supplemented from original_source/app/core/schemas/domain.py — the
// distilled spec mentions domain_key on AgentConfig but never defines what
// it points at).
type Domain struct {
	DomainKey   string
	DisplayName string
	Enabled     bool
	SortOrder   int
}

// BypassRuleType enumerates the three rule kinds from
// original_source/app/core/schemas/bypass_rule.py (spec.md §4.6 describes
// the same three kinds without naming the discriminator).
type BypassRuleType string

const (
	BypassRuleTypePhoneNumber       BypassRuleType = "phone_number"
	BypassRuleTypePhoneNumberList   BypassRuleType = "phone_number_list"
	BypassRuleTypeWhatsAppPhoneID   BypassRuleType = "whatsapp_phone_number_id"
)

// BypassRule is one tenant advanced-config routing override (spec.md §4.6).
type BypassRule struct {
	RuleName        string
	RuleType        BypassRuleType
	Pattern         string   // phone_number: wildcard pattern, e.g. "549264*"
	PhoneNumbers    []string // phone_number_list
	PhoneNumberID   string   // whatsapp_phone_number_id
	TargetAgent     string
	TargetDomain    string
	Priority        int // higher evaluated first
	Enabled         bool
	IsolatedHistory bool
}

// Registry is the per-request tenant view: enabled agents plus derived
// indexes (spec.md §3).
type Registry struct {
	OrganizationID string
	Agents         map[string]*AgentConfig
	Domains        map[string]*Domain
	BypassRules    []BypassRule

	// BypassTargetAgent is set by an upstream pre-router and consumed at
	// most once per request (spec.md §4.6 priority-1 bypass source).
	BypassTargetAgent string
	bypassConsumed    bool

	intentToAgent map[string]string
	keywordIndex  map[string][]string
}

// NewRegistry builds a Registry and its derived indexes from the given
// agents. Callers typically obtain agents from a durable loader (see
// mongostore.Loader) merged with global builtin config.
func NewRegistry(organizationID string, agents map[string]*AgentConfig, domains map[string]*Domain, rules []BypassRule, bypassTargetAgent string) *Registry {
	r := &Registry{
		OrganizationID:    organizationID,
		Agents:            agents,
		Domains:           domains,
		BypassRules:       rules,
		BypassTargetAgent: bypassTargetAgent,
	}
	r.rebuildIndexes()
	return r
}

// EnabledAgentsSorted returns enabled agents sorted by priority descending,
// agent_key ascending for ties (spec.md §3 invariant).
func (r *Registry) EnabledAgentsSorted() []*AgentConfig {
	out := make([]*AgentConfig, 0, len(r.Agents))
	for _, a := range r.Agents {
		if a.Enabled {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].AgentKey < out[j].AgentKey
	})
	return out
}

// rebuildIndexes recomputes intent_to_agent and keyword_index from the
// current Agents map (spec.md §3: "rebuilt on mutation").
func (r *Registry) rebuildIndexes() {
	r.intentToAgent = make(map[string]string)
	r.keywordIndex = make(map[string][]string)

	for _, a := range r.EnabledAgentsSorted() {
		for _, ip := range a.IntentPatterns {
			if _, exists := r.intentToAgent[ip.Pattern]; !exists {
				r.intentToAgent[ip.Pattern] = a.AgentKey
			}
		}
		for kw := range a.Keywords {
			lower := strings.ToLower(kw)
			r.keywordIndex[lower] = append(r.keywordIndex[lower], a.AgentKey)
		}
	}
}

// IntentToAgent returns the first enabled, priority-sorted agent whose
// intent_patterns contain the given intent.
func (r *Registry) IntentToAgent(in string) (string, bool) {
	agent, ok := r.intentToAgent[in]
	return agent, ok
}

// IntentToAgentMap returns a copy suitable for passing to the C4 analyzers'
// AnalysisContext.IntentToAgent.
func (r *Registry) IntentToAgentMap() map[string]string {
	out := make(map[string]string, len(r.intentToAgent))
	for k, v := range r.intentToAgent {
		out[k] = v
	}
	return out
}

// AgentsForKeyword returns agent keys whose keyword set contains kw.
func (r *Registry) AgentsForKeyword(kw string) []string {
	return r.keywordIndex[strings.ToLower(kw)]
}

// Mutate allows a caller to add/replace an agent and rebuilds indexes
// (spec.md §3: indexes stay consistent with the agents map after mutation).
func (r *Registry) Mutate(agent *AgentConfig) {
	r.Agents[agent.AgentKey] = agent
	r.rebuildIndexes()
}

// ConsumeBypassTargetAgent returns the pre-router bypass target exactly
// once; subsequent calls return ("", false) even if the field was set
// (spec.md §4.6: "consumed at most once").
func (r *Registry) ConsumeBypassTargetAgent() (string, bool) {
	if r.bypassConsumed || r.BypassTargetAgent == "" {
		return "", false
	}
	r.bypassConsumed = true
	return r.BypassTargetAgent, true
}

// EvaluateBypass implements the §4.6 bypass evaluator: priority-1 is the
// pre-router hint (consumed at most once), priority-2 is the tenant's
// advanced-config rule list, highest Priority first, first match wins.
func (r *Registry) EvaluateBypass(waID, whatsappPhoneNumberID string) (*BypassRule, string, bool) {
	if target, ok := r.ConsumeBypassTargetAgent(); ok {
		return nil, target, true
	}

	rules := make([]BypassRule, len(r.BypassRules))
	copy(rules, r.BypassRules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	for i := range rules {
		rule := rules[i]
		if !rule.Enabled {
			continue
		}
		if ruleMatches(rule, waID, whatsappPhoneNumberID) {
			return &rule, rule.TargetAgent, true
		}
	}
	return nil, "", false
}

func ruleMatches(rule BypassRule, waID, whatsappPhoneNumberID string) bool {
	switch rule.RuleType {
	case BypassRuleTypePhoneNumber:
		return matchPhonePattern(rule.Pattern, waID)
	case BypassRuleTypePhoneNumberList:
		for _, p := range rule.PhoneNumbers {
			if p == waID {
				return true
			}
		}
		return false
	case BypassRuleTypeWhatsAppPhoneID:
		return rule.PhoneNumberID != "" && rule.PhoneNumberID == whatsappPhoneNumberID
	default:
		return false
	}
}

// matchPhonePattern matches a phone number against a pattern with a trailing
// '*' wildcard, e.g. "549264*" matches any number with that prefix
// (original_source/app/core/schemas/bypass_rule.py's phone_number rule
// type).
func matchPhonePattern(pattern, phone string) bool {
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(phone, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == phone
}

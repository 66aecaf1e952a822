// Package mongostore implements the Tenant Registry's durable loader (C6):
// a registry loader that reads tenant identity from the request and builds
// a tenant.Registry from durable config, per spec.md §4.6. Grounded on the
// teacher's features/session/mongo/store.go collection-access pattern.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/excelencia-digital/orquestador/internal/tenant"
)

const (
	defaultAgentsCollection  = "tenant_agent_configs"
	defaultDomainsCollection = "domains"
	defaultRulesCollection   = "bypass_rules"
	defaultOpTimeout         = 5 * time.Second
)

// Options configures the Mongo-backed registry loader.
type Options struct {
	Client             *mongo.Client
	Database           string
	AgentsCollection   string
	DomainsCollection  string
	RulesCollection    string
	Timeout            time.Duration
}

// Loader builds per-request tenant.Registry values from durable config.
type Loader struct {
	agents  *mongo.Collection
	domains *mongo.Collection
	rules   *mongo.Collection
	timeout time.Duration
}

// New constructs a Loader.
func New(opts Options) (*Loader, error) {
	if opts.Client == nil {
		return nil, errors.New("tenant/mongostore: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("tenant/mongostore: database name is required")
	}
	agentsName := opts.AgentsCollection
	if agentsName == "" {
		agentsName = defaultAgentsCollection
	}
	domainsName := opts.DomainsCollection
	if domainsName == "" {
		domainsName = defaultDomainsCollection
	}
	rulesName := opts.RulesCollection
	if rulesName == "" {
		rulesName = defaultRulesCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	return &Loader{
		agents:  db.Collection(agentsName),
		domains: db.Collection(domainsName),
		rules:   db.Collection(rulesName),
		timeout: timeout,
	}, nil
}

type agentDocument struct {
	AgentKey       string            `bson:"agent_key"`
	DisplayName    string            `bson:"display_name"`
	ClassRef       string            `bson:"class_ref,omitempty"`
	Enabled        bool              `bson:"enabled"`
	Priority       int               `bson:"priority"`
	DomainKey      string            `bson:"domain_key,omitempty"`
	Keywords       []string          `bson:"keywords,omitempty"`
	IntentPatterns []intentPatternDoc `bson:"intent_patterns,omitempty"`
	Config         map[string]any    `bson:"config,omitempty"`
}

type intentPatternDoc struct {
	Pattern         string  `bson:"pattern"`
	Weight          float64 `bson:"weight"`
	RequiresContext bool    `bson:"requires_context"`
}

type domainDocument struct {
	DomainKey   string `bson:"domain_key"`
	DisplayName string `bson:"display_name"`
	Enabled     bool   `bson:"enabled"`
	SortOrder   int    `bson:"sort_order"`
}

type bypassRuleDocument struct {
	RuleName        string   `bson:"rule_name"`
	RuleType        string   `bson:"rule_type"`
	Pattern         string   `bson:"pattern,omitempty"`
	PhoneNumbers    []string `bson:"phone_numbers,omitempty"`
	PhoneNumberID   string   `bson:"phone_number_id,omitempty"`
	TargetAgent     string   `bson:"target_agent"`
	TargetDomain    string   `bson:"target_domain,omitempty"`
	Priority        int      `bson:"priority"`
	Enabled         bool     `bson:"enabled"`
	IsolatedHistory bool     `bson:"isolated_history,omitempty"`
}

// LoadRegistry builds a tenant.Registry for organizationID, applying
// bypassTargetAgent as the priority-1 pre-router hint (spec.md §4.6).
func (l *Loader) LoadRegistry(ctx context.Context, organizationID, bypassTargetAgent string) (*tenant.Registry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	agents, err := l.loadAgents(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	domains, err := l.loadDomains(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	rules, err := l.loadBypassRules(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return tenant.NewRegistry(organizationID, agents, domains, rules, bypassTargetAgent), nil
}

func (l *Loader) loadAgents(ctx context.Context, organizationID string) (map[string]*tenant.AgentConfig, error) {
	cur, err := l.agents.Find(ctx, bson.M{"organization_id": organizationID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []agentDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make(map[string]*tenant.AgentConfig, len(docs))
	for _, d := range docs {
		kwSet := make(map[string]struct{}, len(d.Keywords))
		for _, kw := range d.Keywords {
			kwSet[kw] = struct{}{}
		}
		patterns := make([]tenant.IntentPattern, len(d.IntentPatterns))
		for i, p := range d.IntentPatterns {
			patterns[i] = tenant.IntentPattern{Pattern: p.Pattern, Weight: p.Weight, RequiresContext: p.RequiresContext}
		}
		out[d.AgentKey] = &tenant.AgentConfig{
			AgentKey:       d.AgentKey,
			DisplayName:    d.DisplayName,
			ClassRef:       d.ClassRef,
			Enabled:        d.Enabled,
			Priority:       d.Priority,
			DomainKey:      d.DomainKey,
			Keywords:       kwSet,
			IntentPatterns: patterns,
			Config:         d.Config,
		}
	}
	return out, nil
}

func (l *Loader) loadDomains(ctx context.Context, organizationID string) (map[string]*tenant.Domain, error) {
	cur, err := l.domains.Find(ctx, bson.M{"organization_id": organizationID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []domainDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make(map[string]*tenant.Domain, len(docs))
	for _, d := range docs {
		out[d.DomainKey] = &tenant.Domain{
			DomainKey:   d.DomainKey,
			DisplayName: d.DisplayName,
			Enabled:     d.Enabled,
			SortOrder:   d.SortOrder,
		}
	}
	return out, nil
}

func (l *Loader) loadBypassRules(ctx context.Context, organizationID string) ([]tenant.BypassRule, error) {
	cur, err := l.rules.Find(ctx, bson.M{"organization_id": organizationID})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	var docs []bypassRuleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]tenant.BypassRule, len(docs))
	for i, d := range docs {
		out[i] = tenant.BypassRule{
			RuleName:        d.RuleName,
			RuleType:        tenant.BypassRuleType(d.RuleType),
			Pattern:         d.Pattern,
			PhoneNumbers:    d.PhoneNumbers,
			PhoneNumberID:   d.PhoneNumberID,
			TargetAgent:     d.TargetAgent,
			TargetDomain:    d.TargetDomain,
			Priority:        d.Priority,
			Enabled:         d.Enabled,
			IsolatedHistory: d.IsolatedHistory,
		}
	}
	return out, nil
}

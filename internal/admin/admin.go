// Package admin represents the admin surface (spec.md §6 "Admin surface",
// SPEC_FULL.md §10 conversation history surface) as Go interfaces only — no
// HTTP/UI, per spec.md §1 Non-goals. Concrete implementations live alongside
// the stores they front (internal/tenant for bypass/domain CRUD,
// internal/convctx for conversation reads) and are not provided by this
// package.
package admin

import (
	"context"
	"time"

	"github.com/excelencia-digital/orquestador/internal/convctx"
	"github.com/excelencia-digital/orquestador/internal/tenant"
)

// BypassRuleTestResult is the result of testing a candidate bypass rule set
// against a phone number / channel id pair (spec.md §6: "Test returns
// {matched, matched_rule, target_agent, target_domain, evaluation_order}").
type BypassRuleTestResult struct {
	Matched         bool
	MatchedRule     *tenant.BypassRule
	TargetAgent     string
	TargetDomain    string
	EvaluationOrder []string // rule names in the order they were evaluated
}

// BypassRuleAdmin is the bypass rule CRUD + test surface (spec.md §6).
type BypassRuleAdmin interface {
	Create(ctx context.Context, organizationID string, rule tenant.BypassRule) error
	Get(ctx context.Context, organizationID, ruleName string) (*tenant.BypassRule, error)
	List(ctx context.Context, organizationID string) ([]tenant.BypassRule, error)
	Update(ctx context.Context, organizationID string, rule tenant.BypassRule) error
	Delete(ctx context.Context, organizationID, ruleName string) error
	Test(ctx context.Context, organizationID, phoneNumber, whatsappPhoneNumberID string) (BypassRuleTestResult, error)
}

// DomainAdmin is the domain CRUD surface (spec.md §6).
type DomainAdmin interface {
	Create(ctx context.Context, organizationID string, domain tenant.Domain) error
	Get(ctx context.Context, organizationID, domainKey string) (*tenant.Domain, error)
	List(ctx context.Context, organizationID string) ([]tenant.Domain, error)
	Update(ctx context.Context, organizationID string, domain tenant.Domain) error
	Delete(ctx context.Context, organizationID, domainKey string) error
}

// ConversationSummary is one row in a recent-conversations listing.
type ConversationSummary struct {
	ConversationID string
	LastAgent      string
	LastActivityAt time.Time
	TotalTurns     int
}

// ConversationHistoryReader is the conversation read surface (spec.md §6:
// "get context, paginated messages, recent conversations, force-regenerate
// summary, clear conversation"; supplemented from
// original_source/app/api/routes/conversation_history.py, which adds
// agent-name filtering on the paginated messages read).
type ConversationHistoryReader interface {
	GetContext(ctx context.Context, conversationID string) (*convctx.Context, error)

	// ListMessages returns up to limit messages for conversationID starting
	// after offset, ascending by CreatedAt, optionally filtered to a single
	// agentName (empty string means no filter).
	ListMessages(ctx context.Context, conversationID string, offset, limit int, agentName string) ([]*convctx.Message, error)

	// ListRecentConversations returns the most recently active conversations
	// for organizationID, most recent first.
	ListRecentConversations(ctx context.Context, organizationID string, limit int) ([]ConversationSummary, error)

	// RegenerateSummary forces a fresh RollingSummary for conversationID,
	// typically by re-invoking the LLM over recent messages out of band from
	// the normal turn loop.
	RegenerateSummary(ctx context.Context, conversationID string) (string, error)

	ClearConversation(ctx context.Context, conversationID string) error
}

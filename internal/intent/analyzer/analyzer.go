// Package analyzer defines the common Analyzer contract implemented by the
// three C4 intent analyzers (llmanalyzer, nlpanalyzer, keywordanalyzer).
package analyzer

import (
	"context"

	"github.com/excelencia-digital/orquestador/internal/intent"
)

// AnalysisContext is the subset of conversation state an analyzer needs.
// It deliberately avoids importing internal/convctx or internal/graph to
// keep this package a leaf the router (C5) can depend on without cycles.
type AnalysisContext struct {
	ConversationID  string
	OrganizationID  string
	RollingSummary  string
	LastBotResponse string
	PreviousAgent   string
	RecentMessages  []RecentMessage
	ValidIntents    []string
	// IntentExamples maps intent name to 1-2 example utterances, used by the
	// LLM analyzer to build its prompt (spec.md §4.4).
	IntentExamples map[string][]string
	// IntentToAgent is used to resolve a validated intent to a target agent.
	IntentToAgent map[string]string
}

// RecentMessage is a trimmed view of convctx.Message for prompt-building.
type RecentMessage struct {
	Sender  string
	Content string
}

// Analyzer implements analyze(message, context) -> IntentResult (spec.md
// §4.4). All three concrete analyzers share this one-method contract,
// mirroring the teacher's uniform one-method interfaces (model.Client,
// tools.Tool).
type Analyzer interface {
	Analyze(ctx context.Context, message string, ac AnalysisContext) (intent.Result, error)
}

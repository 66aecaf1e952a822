// Package llmanalyzer implements the LLM analyzer (C4, spec.md §4.4): the
// first and strongest tier of the C5 cascade. It builds a classification
// prompt, calls a provider-agnostic llm.Client (teacher pattern:
// runtime/agent/model.Client), extracts and validates the returned intent
// via C3, and caches the final result via C2.
package llmanalyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/validate"
	"github.com/excelencia-digital/orquestador/internal/llm"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
)

// DefaultTimeout is the hard per-call timeout (spec.md §4.4: "default 60 s").
const DefaultTimeout = 60 * time.Second

// DefaultTemperature matches spec.md §4.4 ("temperature ~= 0.3").
const DefaultTemperature = 0.3

// FallbackConfidence is used when parsing, timeout, or any other failure
// occurs (spec.md §4.4).
const FallbackConfidence = 0.3

// AcceptThreshold is the C5 cascade's acceptance bar for this tier.
const AcceptThreshold = 0.6

var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Analyzer implements analyzer.Analyzer on top of an llm.Client.
type Analyzer struct {
	client      llm.Client
	cache       *intent.Cache
	timeout     time.Duration
	temperature float32
	logger      telemetry.Logger
	metrics     telemetry.Metrics
}

// New constructs an Analyzer. cache may be shared across analyzer instances
// (and should be, per spec.md §4.2: process-local, one cache for the whole
// router).
func New(client llm.Client, cache *intent.Cache, logger telemetry.Logger, metrics telemetry.Metrics) *Analyzer {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Analyzer{
		client:      client,
		cache:       cache,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
		logger:      logger,
		metrics:     metrics,
	}
}

// Analyze implements analyzer.Analyzer.
func (a *Analyzer) Analyze(ctx context.Context, message string, ac analyzer.AnalysisContext) (intent.Result, error) {
	cacheKey := intent.CacheKey(message, intent.CacheKeyContext{
		Language:      "es",
		UserTier:      "default",
		PreviousAgent: ac.PreviousAgent,
	})
	if a.cache != nil {
		if cached, ok := a.cache.Get(cacheKey); ok {
			a.metrics.IncCounter("intent.llm.cache_hit", 1)
			return cached, nil
		}
	}

	result := a.analyzeUncached(ctx, message, ac)

	if a.cache != nil {
		a.cache.Set(cacheKey, result)
	}
	return result, nil
}

func (a *Analyzer) analyzeUncached(ctx context.Context, message string, ac analyzer.AnalysisContext) intent.Result {
	timeoutCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := &llm.Request{
		Messages:    buildPrompt(message, ac),
		Temperature: a.temperature,
		ModelClass:  llm.ModelClassDefault,
		MaxTokens:   512,
	}

	resp, err := a.client.Complete(timeoutCtx, req)
	if err != nil {
		a.metrics.IncCounter("intent.llm.error", 1)
		return fallback(ac, fmt.Sprintf("llm call failed: %v", err))
	}

	parsed, ok := extractJSON(resp.Text)
	if !ok {
		a.metrics.IncCounter("intent.llm.parse_error", 1)
		return fallback(ac, "could not extract JSON from llm response")
	}

	validIntent, confidence, reason := validate.Validate(parsed.Intent, ac.ValidIntents)
	if reason != "" {
		a.logger.Debug(ctx, "llm analyzer: intent corrected", "raw", parsed.Intent, "corrected", validIntent, "reason", reason)
	} else if parsed.Confidence > 0 {
		// validate.Validate returned identity (the model's intent was already
		// valid): trust the model's own reported confidence instead of the
		// fixed 1.0 identity value.
		confidence = parsed.Confidence
	}

	a.metrics.IncCounter("intent.llm.success", 1)
	return intent.Result{
		PrimaryIntent: validIntent,
		Confidence:    confidence,
		TargetAgent:   ac.IntentToAgent[validIntent],
		Method:        intent.MethodLLM,
		Reasoning:     parsed.Reasoning,
		Entities:      parsed.Entities,
	}
}

func fallback(ac analyzer.AnalysisContext, reason string) intent.Result {
	return intent.Result{
		PrimaryIntent: intent.FallbackIntent,
		Confidence:    FallbackConfidence,
		TargetAgent:   ac.IntentToAgent[intent.FallbackIntent],
		Method:        intent.MethodLLM,
		Reasoning:     reason,
	}
}

type llmClassification struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Entities   map[string]any `json:"entities"`
}

// extractJSON is tolerant to surrounding prose (spec.md §4.4): it locates
// the first {...} block in the text and unmarshals it.
func extractJSON(text string) (llmClassification, bool) {
	match := jsonBlockPattern.FindString(text)
	if match == "" {
		return llmClassification{}, false
	}
	var out llmClassification
	if err := json.Unmarshal([]byte(match), &out); err != nil {
		return llmClassification{}, false
	}
	if out.Intent == "" {
		return llmClassification{}, false
	}
	return out, true
}

// buildPrompt assembles the classification request transcript: system
// instructions, enumerated valid intents with examples, rolling summary,
// last bot message, previous agent, and recent messages (spec.md §4.4).
func buildPrompt(message string, ac analyzer.AnalysisContext) []llm.Message {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier for a multi-agent conversational system. ")
	sb.WriteString("Respond with a single JSON object: {\"intent\": string, \"confidence\": number in [0,1], \"reasoning\": string, \"entities\": object}.\n\n")
	sb.WriteString("Valid intents:\n")
	for _, in := range ac.ValidIntents {
		sb.WriteString("- ")
		sb.WriteString(in)
		if examples := ac.IntentExamples[in]; len(examples) > 0 {
			sb.WriteString(" (examples: ")
			sb.WriteString(strings.Join(examples, "; "))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	if ac.RollingSummary != "" {
		sb.WriteString("\nConversation summary: ")
		sb.WriteString(ac.RollingSummary)
	}
	if ac.LastBotResponse != "" {
		sb.WriteString("\nLast assistant message: ")
		sb.WriteString(ac.LastBotResponse)
	}
	if ac.PreviousAgent != "" {
		sb.WriteString("\nPrevious agent: ")
		sb.WriteString(ac.PreviousAgent)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Text: sb.String()}}
	for _, m := range ac.RecentMessages {
		role := llm.RoleUser
		if m.Sender == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Text: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Text: message})
	return messages
}

// Package router implements the Intent Router (C5, spec.md §4.5): the
// cascade that ties together the flow check (C3), the three analyzers (C4),
// and per-request metrics.
package router

import (
	"context"
	"time"

	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
	"github.com/excelencia-digital/orquestador/internal/intent/validate"
	"github.com/excelencia-digital/orquestador/internal/telemetry"
)

// LLMAcceptThreshold and NLPAcceptThreshold gate the first and second
// cascade tiers (spec.md §4.5). The keyword tier has no threshold: its
// result is always accepted.
const (
	LLMAcceptThreshold = 0.6
	NLPAcceptThreshold = 0.4
)

// Router runs the C5 cascade: flow check, then LLM, NLP, keyword analyzers
// in order, accepting the first result clearing its tier's threshold.
type Router struct {
	LLM     analyzer.Analyzer
	NLP     analyzer.Analyzer
	Keyword analyzer.Analyzer

	Logger  telemetry.Logger
	Metrics telemetry.Metrics
}

// New constructs a Router. llmA and nlpA may be nil (e.g. no provider
// configured, or the NLP analyzer disabled); keywordA must not be nil since
// it is the cascade's guaranteed-to-succeed last resort.
func New(llmA, nlpA, keywordA analyzer.Analyzer, logger telemetry.Logger, metrics telemetry.Metrics) *Router {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Router{LLM: llmA, NLP: nlpA, Keyword: keywordA, Logger: logger, Metrics: metrics}
}

// Route implements the cascade described in spec.md §4.5.
func (r *Router) Route(ctx context.Context, message string, ac analyzer.AnalysisContext, flowData validate.ConversationData) intent.Result {
	start := time.Now()
	defer func() {
		r.Metrics.RecordTimer("intent.router.duration", time.Since(start))
	}()

	if flow := validate.CheckActiveFlow(flowData); flow != nil {
		r.Metrics.IncCounter("intent.router.flow_continuation", 1)
		return *flow
	}

	if r.LLM != nil {
		result, err := r.tryAnalyzer(ctx, r.LLM, "llm", message, ac)
		if err == nil && result.Confidence >= LLMAcceptThreshold {
			r.Metrics.IncCounter("intent.router.accepted_llm", 1)
			return result
		}
	}

	if r.NLP != nil {
		result, err := r.tryAnalyzer(ctx, r.NLP, "nlp", message, ac)
		if err == nil && result.Confidence >= NLPAcceptThreshold {
			r.Metrics.IncCounter("intent.router.accepted_nlp", 1)
			return result
		}
	}

	result, err := r.tryAnalyzer(ctx, r.Keyword, "keyword", message, ac)
	if err != nil {
		// The keyword analyzer always succeeds per its own contract; an error
		// here means something unexpected broke it. Degrade to a bare
		// fallback rather than propagate a panic-worthy nil result.
		r.Metrics.IncCounter("intent.router.fatal_fallback", 1)
		return intent.Result{
			PrimaryIntent: intent.FallbackIntent,
			Confidence:    0.4,
			TargetAgent:   ac.IntentToAgent[intent.FallbackIntent],
			Method:        intent.MethodKeyword,
			Reasoning:     "keyword analyzer failed: " + err.Error(),
		}
	}
	r.Metrics.IncCounter("intent.router.accepted_keyword", 1)
	return result
}

// tryAnalyzer invokes an analyzer, catching its error rather than letting a
// single tier's failure abort the cascade (spec.md §4.5: "Exceptions in any
// analyzer degrade to the next one").
func (r *Router) tryAnalyzer(ctx context.Context, a analyzer.Analyzer, tier, message string, ac analyzer.AnalysisContext) (result intent.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Logger.Warn(ctx, "intent router: analyzer panicked", "tier", tier, "panic", rec)
			err = errPanic
		}
	}()
	result, err = a.Analyze(ctx, message, ac)
	if err != nil {
		r.Logger.Warn(ctx, "intent router: analyzer failed", "tier", tier, "error", err.Error())
		r.Metrics.IncCounter("intent.router.analyzer_error", 1)
	}
	return result, err
}

var errPanic = panicError{}

type panicError struct{}

func (panicError) Error() string { return "analyzer panicked" }

// Package keywordanalyzer implements the keyword analyzer (C4, spec.md
// §4.4): the last-resort analyzer in the C5 cascade. It always succeeds,
// possibly with the fallback intent.
package keywordanalyzer

import (
	"context"
	"strings"

	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
)

// KeywordMap is a fixed per-intent keyword table. Keys are intent names;
// values are the keywords that, if present in the message, count as a match
// for that intent.
type KeywordMap map[string][]string

// DefaultKeywords is a small built-in table covering the builtin agents and
// the two supplemented domain workers (credit, ecommerce). A tenant's own
// AgentConfig.Keywords (C6) are not merged into this table.
var DefaultKeywords = KeywordMap{
	"greeting":        {"hola", "buenas", "buenos dias", "hello", "hi"},
	"farewell":        {"adios", "chau", "gracias", "bye", "hasta luego"},
	"credit_inquiry":  {"saldo", "pago", "cuota", "deuda", "credito"},
	"product_inquiry": {"producto", "precio", "pedido", "envio", "catalogo"},
	"support_request":  {"ayuda", "problema", "reclamo", "queja"},
}

// Analyzer implements analyzer.Analyzer by scanning the message for
// membership in a fixed per-intent keyword map.
type Analyzer struct {
	keywords KeywordMap
}

// New constructs an Analyzer. A nil/empty table falls back to
// DefaultKeywords.
func New(keywords KeywordMap) *Analyzer {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &Analyzer{keywords: keywords}
}

// Analyze implements analyzer.Analyzer. Confidence = min(0.5 + 0.15 *
// matches, 0.8); no match yields the fallback intent at 0.4 (spec.md §4.4).
func (a *Analyzer) Analyze(_ context.Context, message string, ac analyzer.AnalysisContext) (intent.Result, error) {
	lower := strings.ToLower(message)

	bestIntent := ""
	bestMatches := 0
	for in, words := range a.keywords {
		matches := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				matches++
			}
		}
		if matches > bestMatches {
			bestMatches = matches
			bestIntent = in
		}
	}

	if bestMatches == 0 {
		return intent.Result{
			PrimaryIntent: intent.FallbackIntent,
			Confidence:    0.4,
			TargetAgent:   ac.IntentToAgent[intent.FallbackIntent],
			Method:        intent.MethodKeyword,
			Reasoning:     "no keyword match",
		}, nil
	}

	confidence := 0.5 + 0.15*float64(bestMatches)
	if confidence > 0.8 {
		confidence = 0.8
	}
	return intent.Result{
		PrimaryIntent: bestIntent,
		Confidence:    confidence,
		TargetAgent:   ac.IntentToAgent[bestIntent],
		Method:        intent.MethodKeyword,
		Reasoning:     "keyword match",
	}, nil
}

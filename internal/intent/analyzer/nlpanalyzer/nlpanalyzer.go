// Package nlpanalyzer implements the NLP analyzer (C4, spec.md §4.4): the
// middle tier of the C5 cascade, combining weighted keyword scoring, a
// light named-entity heuristic, optional vector similarity, and pattern
// scoring into a single confidence per intent.
//
// No NLP/NER library appears anywhere in the reference corpus (neither the
// teacher nor the rest of the example pack imports one), so this analyzer
// is deliberately stdlib-only (regexp + unicode) — documented as a stdlib
// justification in DESIGN.md rather than reaching for an unproven
// dependency.
package nlpanalyzer

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
)

// KeywordWeight classifies a keyword's strength for an intent.
type KeywordWeight float64

const (
	WeightHigh   KeywordWeight = 1.0
	WeightMedium KeywordWeight = 0.7
	WeightLow    KeywordWeight = 0.3
)

// KeywordGroup is a set of keywords sharing a weight, for one intent.
type KeywordGroup struct {
	Weight   KeywordWeight
	Keywords []string
}

// EntityWeight is the fixed per-entity score bump (spec.md §4.4: "+0.5 per
// relevant entity").
const EntityWeight = 0.5

// combineWeights are the fixed weights for (keyword, entity, vector,
// pattern) scoring, per spec.md §4.4.
const (
	keywordCombineWeight = 0.4
	entityCombineWeight  = 0.2
	vectorCombineWeight  = 0.3
	patternCombineWeight = 0.1
)

const confidenceCap = 0.9
const fallbackThreshold = 0.3

var (
	digitPattern    = regexp.MustCompile(`\d`)
	currencyPattern = regexp.MustCompile(`(?i)\$|usd|peso|precio|costo`)
	urgencyPattern  = regexp.MustCompile(`(?i)urgente|ya|ahora|inmediato|rapido`)
	questionPattern = regexp.MustCompile(`(?i)\?|como|cuando|donde|que|cual`)
)

// VectorSpace optionally provides per-intent reference vectors and a
// document embedder, used for the cosine-similarity scoring stage. When nil
// (the common case, since this analyzer has no embedding provider wired by
// default), vector scoring is skipped and its weight is redistributed to
// zero contribution rather than penalizing the combined score.
type VectorSpace interface {
	Embed(text string) []float64
	Reference(intentName string) []float64
}

// Analyzer implements analyzer.Analyzer using keyword/entity/vector/pattern
// scoring. It is a "singleton NLP model loaded once at startup" per spec.md
// §4.4 in the sense that one Analyzer instance is constructed per process
// and reused; there is no external model file to load in this stdlib-only
// implementation, so it is never "unavailable."
type Analyzer struct {
	keywords map[string][]KeywordGroup
	entities map[string][]string
	vectors  VectorSpace
}

// New constructs an Analyzer. vectors may be nil.
func New(keywords map[string][]KeywordGroup, entities map[string][]string, vectors VectorSpace) *Analyzer {
	return &Analyzer{keywords: keywords, entities: entities, vectors: vectors}
}

// Analyze implements analyzer.Analyzer.
func (a *Analyzer) Analyze(_ context.Context, message string, ac analyzer.AnalysisContext) (intent.Result, error) {
	lower := strings.ToLower(message)
	tokens := strings.Fields(lower)
	tokenCount := float64(len(tokens))
	if tokenCount == 0 {
		tokenCount = 1
	}

	patternScore := scorePatterns(lower)

	bestIntent := ""
	bestScore := -1.0
	detectedEntities := map[string]any{
		"sentiment":     sentiment(lower),
		"urgency_level": urgencyLevel(lower),
	}

	for in := range a.keywords {
		kwScore := a.keywordScore(in, lower) / tokenCount
		entScore := a.entityScore(in, lower, detectedEntities)
		vecScore := a.vectorScore(in, message)

		combined := keywordCombineWeight*kwScore +
			entityCombineWeight*entScore +
			vectorCombineWeight*vecScore +
			patternCombineWeight*patternScore[in]

		if combined > bestScore {
			bestScore = combined
			bestIntent = in
		}
	}

	if bestScore < fallbackThreshold || bestIntent == "" {
		return intent.Result{
			PrimaryIntent: intent.FallbackIntent,
			Confidence:    math.Max(bestScore, 0),
			TargetAgent:   ac.IntentToAgent[intent.FallbackIntent],
			Method:        intent.MethodNLP,
			Reasoning:     "no intent scored above threshold",
			Entities:      detectedEntities,
		}, nil
	}

	confidence := bestScore
	if confidence > confidenceCap {
		confidence = confidenceCap
	}
	return intent.Result{
		PrimaryIntent: bestIntent,
		Confidence:    confidence,
		TargetAgent:   ac.IntentToAgent[bestIntent],
		Method:        intent.MethodNLP,
		Reasoning:     "combined keyword/entity/vector/pattern score",
		Entities:      detectedEntities,
	}, nil
}

func (a *Analyzer) keywordScore(in, lower string) float64 {
	var score float64
	for _, group := range a.keywords[in] {
		for _, kw := range group.Keywords {
			if strings.Contains(lower, kw) {
				score += float64(group.Weight)
			}
		}
	}
	return score
}

func (a *Analyzer) entityScore(in, lower string, detected map[string]any) float64 {
	var score float64
	for _, ent := range a.entities[in] {
		if strings.Contains(lower, strings.ToLower(ent)) {
			score += EntityWeight
			detected[ent] = true
		}
	}
	return score
}

func (a *Analyzer) vectorScore(in, message string) float64 {
	if a.vectors == nil {
		return 0
	}
	ref := a.vectors.Reference(in)
	if ref == nil {
		return 0
	}
	doc := a.vectors.Embed(message)
	return cosine(doc, ref)
}

// scorePatterns implements spec.md §4.4 pattern scoring: digits suggest
// tracking/billing; currency tokens product/billing; urgency tokens
// support; question tokens product/tracking.
func scorePatterns(lower string) map[string]float64 {
	scores := map[string]float64{}
	if digitPattern.MatchString(lower) {
		scores["tracking_inquiry"] += 1
		scores["credit_inquiry"] += 1
	}
	if currencyPattern.MatchString(lower) {
		scores["product_inquiry"] += 1
		scores["credit_inquiry"] += 1
	}
	if urgencyPattern.MatchString(lower) {
		scores["support_request"] += 1
	}
	if questionPattern.MatchString(lower) {
		scores["product_inquiry"] += 1
		scores["tracking_inquiry"] += 1
	}
	return scores
}

var (
	negativePattern = regexp.MustCompile(`(?i)mal|pesimo|horrible|enojado|molesto|terrible`)
	positivePattern = regexp.MustCompile(`(?i)gracias|genial|excelente|perfecto|buenisimo`)
)

// sentiment is a coarse, stdlib-only heuristic: counts positive and negative
// markers and returns the dominant polarity, or "neutral" on a tie.
func sentiment(lower string) string {
	neg := len(negativePattern.FindAllString(lower, -1))
	pos := len(positivePattern.FindAllString(lower, -1))
	switch {
	case neg > pos:
		return "negative"
	case pos > neg:
		return "positive"
	default:
		return "neutral"
	}
}

// urgencyLevel is derived from the same urgency markers used in pattern
// scoring.
func urgencyLevel(lower string) string {
	if urgencyPattern.MatchString(lower) {
		return "high"
	}
	return "normal"
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

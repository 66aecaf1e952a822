// Package supervisor implements the Supervisor (C10, spec.md §4.10): the
// closed-loop quality gate with four sub-parts — quality evaluator, flow
// controller, action decider, and an optional response enhancer.
package supervisor

import (
	"regexp"
	"strings"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

// Category values for Evaluation.Category (spec.md §4.10a).
const (
	CategoryCompleteWithData = "complete_with_data"
	CategoryPartialInfo      = "partial_info"
	CategoryFallbackResponse = "fallback_response"
	CategoryErrorResponse    = "error_response"
	CategoryRedirectResponse = "redirect_response"
)

// Suggested actions (spec.md §4.10c).
const (
	ActionAccept     = "accept"
	ActionStopRetry  = "stop_retry"
	ActionReRoute    = "re_route"
	ActionEnhance    = "enhance"
)

var (
	redirectPhrases = []string{
		"te recomiendo contactar", "por favor contacta", "te sugiero hablar con",
		"deberías comunicarte con", "contacta a",
	}
	noInfoPhrases = []string{
		"no tengo información", "no dispongo de datos", "no cuento con esa información",
		"no puedo acceder a", "lo siento, no tengo",
	}
	genericOfferPhrases = []string{
		"¿en qué más puedo ayudarte", "¿hay algo más", "cuéntame más sobre",
	}

	properNamePattern = regexp.MustCompile(`[A-ZÁÉÍÓÚÑ][a-záéíóúñ]+(?:\s+[A-ZÁÉÍÓÚÑ][a-záéíóúñ]+)+`)
	numberPattern     = regexp.MustCompile(`\d`)
	bulletLinePattern = regexp.MustCompile(`(?m)^\s*[-•*]\s+`)
	questionWordsRe   = regexp.MustCompile(`(?i)\b(qué|cómo|cuándo|dónde|por qué|cuál)\b`)
	connectivesRe     = regexp.MustCompile(`(?i)\b(además|por lo tanto|sin embargo|en consecuencia|así que)\b`)
	actionableVerbsRe = regexp.MustCompile(`(?i)\b(puedes|podrás|realiza|ingresa|consulta|revisa|verifica)\b`)
)

// EvaluateInput is the data the quality evaluator needs (spec.md §4.10a).
type EvaluateInput struct {
	UserMessage    string
	WorkerResponse string
	AgentName      string
	QueryType      string // "corporate", "product", "products", or "" for general
	State          graph.State
}

// Evaluate implements the C10a Quality Evaluator.
func Evaluate(in EvaluateInput) graph.Evaluation {
	fallbackScore := fallbackScore(in.WorkerResponse)
	counts := specificDataCounts(in.WorkerResponse)
	hasSpecific := hasSpecific(in.QueryType, counts)
	category := categorize(fallbackScore, hasSpecific, in.QueryType)

	completeness := completenessScore(in.WorkerResponse)
	relevance := relevanceScore(in.UserMessage, in.WorkerResponse, in.AgentName, in.QueryType)
	clarity := clarityScore(in.WorkerResponse)
	helpfulness := helpfulnessScore(in.WorkerResponse)

	base := 0.3*completeness + 0.3*relevance + 0.2*clarity + 0.2*helpfulness
	overall := clamp01(base + categoryAdjustment(category))

	ragHadResults := in.State.RAGMetrics != nil && in.State.RAGMetrics.HasResults

	eval := graph.Evaluation{
		FallbackScore:     fallbackScore,
		FoundSpecificData: counts,
		Category:          category,
		CompletenessScore: completeness,
		RelevanceScore:    relevance,
		ClarityScore:      clarity,
		HelpfulnessScore:  helpfulness,
		BaseScore:         base,
		OverallScore:      overall,
		RAGHadResults:     ragHadResults,
	}
	eval.SuggestedAction = decideAction(eval, in.State)
	return eval
}

// fallbackScore weighs three phrase families (spec.md §4.10a).
func fallbackScore(response string) float64 {
	lower := strings.ToLower(response)
	score := 0.0
	score += 0.4 * float64(countMatches(lower, redirectPhrases))
	score += 0.5 * float64(countMatches(lower, noInfoPhrases))
	score += 0.2 * float64(countMatches(lower, genericOfferPhrases))
	return clamp01(score)
}

func countMatches(haystack string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			n++
		}
	}
	return n
}

func specificDataCounts(response string) graph.SpecificDataCounts {
	return graph.SpecificDataCounts{
		ProperNames: len(properNamePattern.FindAllString(response, -1)),
		Numbers:     len(numberPattern.FindAllString(response, -1)),
		BulletLines: len(bulletLinePattern.FindAllString(response, -1)),
	}
}

// hasSpecific implements spec.md §4.10a's per-query-type specificity check.
func hasSpecific(queryType string, counts graph.SpecificDataCounts) bool {
	switch queryType {
	case "corporate":
		return counts.ProperNames > 0
	case "product", "products":
		return counts.Numbers > 0
	default:
		return true
	}
}

// categorize decides Category via the 2-D rule matrix described in spec.md
// §4.10a, with corporate/product special-casing folded into hasSpecific.
func categorize(fallbackScore float64, hasSpecific bool, queryType string) string {
	switch {
	case fallbackScore >= 0.5:
		return CategoryFallbackResponse
	case fallbackScore >= 0.2 && !hasSpecific:
		return CategoryRedirectResponse
	case hasSpecific:
		return CategoryCompleteWithData
	case queryType == "corporate" || queryType == "product" || queryType == "products":
		return CategoryPartialInfo
	default:
		return CategoryPartialInfo
	}
}

func categoryAdjustment(category string) float64 {
	switch category {
	case CategoryCompleteWithData:
		return 0.1
	case CategoryPartialInfo:
		return 0
	case CategoryRedirectResponse:
		return -0.2
	case CategoryFallbackResponse:
		return -0.3
	case CategoryErrorResponse:
		return -0.4
	default:
		return 0
	}
}

func completenessScore(response string) float64 {
	length := len([]rune(response))
	lengthScore := clamp01(float64(length) / 300.0)
	questionBonus := 0.0
	if questionWordsRe.MatchString(response) {
		questionBonus = 0.1
	}
	return clamp01(0.8*lengthScore + questionBonus)
}

func relevanceScore(userMessage, response, agentName, queryType string) float64 {
	overlap := wordOverlap(userMessage, response)
	agentBonus := 0.0
	if relevantAgentForQuery(agentName, queryType) {
		agentBonus = 0.3
	}
	return clamp01(0.7*overlap + agentBonus)
}

func relevantAgentForQuery(agentName, queryType string) bool {
	lookup := map[string]string{
		"corporate": "support_agent",
		"product":   "ecommerce_agent",
		"products":  "ecommerce_agent",
	}
	want, ok := lookup[queryType]
	return ok && want == agentName
}

func wordOverlap(a, b string) float64 {
	aw := wordSet(a)
	bw := wordSet(b)
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	shared := 0
	for w := range aw {
		if _, ok := bw[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(aw))
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

// clarityScore rewards a sentence-length "sweet spot" and structural
// connectives (spec.md §4.10a).
func clarityScore(response string) float64 {
	sentences := strings.FieldsFunc(response, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	if len(sentences) == 0 {
		return 0
	}
	avgWords := 0.0
	for _, s := range sentences {
		avgWords += float64(len(strings.Fields(s)))
	}
	avgWords /= float64(len(sentences))

	sweetSpot := 1.0 - clamp01(absf(avgWords-15)/15)
	connectiveBonus := 0.0
	if connectivesRe.MatchString(response) {
		connectiveBonus = 0.15
	}
	return clamp01(0.85*sweetSpot + connectiveBonus)
}

func helpfulnessScore(response string) float64 {
	actionable := 0.0
	if actionableVerbsRe.MatchString(response) {
		actionable = 0.5
	}
	specificity := clamp01(float64(len(numberPattern.FindAllString(response, -1))) / 5.0)
	tone := 0.2
	if strings.Contains(strings.ToLower(response), "lamento") || strings.Contains(strings.ToLower(response), "disculpa") {
		tone = 0.1
	}
	return clamp01(0.5*actionable + 0.3*specificity + 0.2*tone)
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

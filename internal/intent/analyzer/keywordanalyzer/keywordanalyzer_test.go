package keywordanalyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelencia-digital/orquestador/internal/intent"
	"github.com/excelencia-digital/orquestador/internal/intent/analyzer"
)

func TestAnalyzeMatchesKnownKeyword(t *testing.T) {
	a := New(nil)
	ac := analyzer.AnalysisContext{IntentToAgent: map[string]string{"credit_inquiry": "credit_agent"}}

	result, err := a.Analyze(context.Background(), "quiero saber mi saldo", ac)
	require.NoError(t, err)
	assert.Equal(t, "credit_inquiry", result.PrimaryIntent)
	assert.Equal(t, "credit_agent", result.TargetAgent)
	assert.Equal(t, intent.MethodKeyword, result.Method)
}

func TestAnalyzeFallsBackWhenNoMatch(t *testing.T) {
	a := New(nil)
	result, err := a.Analyze(context.Background(), "algo completamente distinto xyz", analyzer.AnalysisContext{})
	require.NoError(t, err)
	assert.Equal(t, intent.FallbackIntent, result.PrimaryIntent)
	assert.Equal(t, 0.4, result.Confidence)
}

func TestAnalyzePicksIntentWithMostMatches(t *testing.T) {
	a := New(KeywordMap{
		"a": {"foo"},
		"b": {"foo", "bar"},
	})
	result, err := a.Analyze(context.Background(), "foo bar", analyzer.AnalysisContext{})
	require.NoError(t, err)
	assert.Equal(t, "b", result.PrimaryIntent)
}

func TestAnalyzeConfidenceCapsAtPointEight(t *testing.T) {
	a := New(KeywordMap{"many": {"a", "b", "c", "d", "e"}})
	result, err := a.Analyze(context.Background(), "a b c d e", analyzer.AnalysisContext{})
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestNewFallsBackToDefaultKeywordsWhenEmpty(t *testing.T) {
	a := New(nil)
	assert.Equal(t, DefaultKeywords["greeting"], a.keywords["greeting"])
}

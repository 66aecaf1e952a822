package supervisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

func TestEvaluateNoInfoPhraseYieldsFallbackCategory(t *testing.T) {
	eval := Evaluate(EvaluateInput{
		UserMessage:    "cual es mi saldo",
		WorkerResponse: "Lo siento, no tengo esa información disponible en este momento.",
		AgentName:      "credit_agent",
	})
	assert.Equal(t, CategoryFallbackResponse, eval.Category)
	assert.GreaterOrEqual(t, eval.FallbackScore, 0.5)
	assert.Equal(t, ActionStopRetry, eval.SuggestedAction)
}

func TestEvaluateSpecificDataYieldsCompleteWithData(t *testing.T) {
	eval := Evaluate(EvaluateInput{
		UserMessage:    "cual es mi saldo",
		WorkerResponse: "Hola Juan Perez, tu saldo actual es de 1500 pesos. Puedes consultar el detalle cuando quieras.",
		AgentName:      "credit_agent",
	})
	assert.Equal(t, CategoryCompleteWithData, eval.Category)
	assert.Equal(t, ActionAccept, eval.SuggestedAction)
}

func TestFallbackScoreWeightsPhraseFamilies(t *testing.T) {
	redirectOnly := fallbackScore("te recomiendo contactar a soporte")
	noInfoOnly := fallbackScore("no tengo información sobre eso")
	genericOnly := fallbackScore("¿hay algo más en lo que pueda ayudarte?")

	assert.InDelta(t, 0.4, redirectOnly, 0.001)
	assert.InDelta(t, 0.5, noInfoOnly, 0.001)
	assert.InDelta(t, 0.2, genericOnly, 0.001)
}

func TestFallbackScoreClampsAtOne(t *testing.T) {
	combined := strings.Join([]string{
		"te recomiendo contactar", "por favor contacta", "te sugiero hablar con",
		"deberías comunicarte con", "contacta a",
		"no tengo información", "no dispongo de datos",
	}, ". ")
	assert.Equal(t, 1.0, fallbackScore(combined))
}

func TestHasSpecificByQueryType(t *testing.T) {
	corporate := graph.SpecificDataCounts{ProperNames: 1}
	product := graph.SpecificDataCounts{Numbers: 1}
	empty := graph.SpecificDataCounts{}

	assert.True(t, hasSpecific("corporate", corporate))
	assert.False(t, hasSpecific("corporate", empty))
	assert.True(t, hasSpecific("product", product))
	assert.False(t, hasSpecific("product", empty))
	assert.True(t, hasSpecific("", empty)) // general query type has no specificity gate
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(2))
	assert.Equal(t, 0.5, clamp01(0.5))
}

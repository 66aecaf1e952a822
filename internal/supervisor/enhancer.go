package supervisor

import (
	"context"

	"github.com/excelencia-digital/orquestador/internal/llm"
)

// MinEnhancedLength is the length floor below which an enhanced response is
// discarded in favor of the original (spec.md §4.10d).
const MinEnhancedLength = 20

// EnhancerTemperature keeps rewrites close to the source content.
const EnhancerTemperature = 0.2

// Enhancer is the optional C10d Response Enhancer, disabled by default.
// When enabled it rewrites a worker's response for tone while preserving all
// factual content.
type Enhancer struct {
	Client  llm.Client
	Enabled bool
}

// NewEnhancer constructs a disabled-by-default Enhancer (spec.md §4.10d:
// "optional, disabled by default").
func NewEnhancer(client llm.Client) *Enhancer {
	return &Enhancer{Client: client, Enabled: false}
}

// Enhance rewrites response for tone via the LLM client, keeping the
// original if the client is absent, disabled, erroring, or the rewrite is
// too short (spec.md §4.10d).
func (e *Enhancer) Enhance(ctx context.Context, response string) string {
	if e == nil || !e.Enabled || e.Client == nil {
		return response
	}

	req := &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Text: "Reescribe el siguiente mensaje para un tono cálido y profesional. Preserva absolutamente todo el contenido factual: no agregues ni quites datos, nombres o cifras. Devuelve únicamente el texto reescrito."},
			{Role: llm.RoleUser, Text: response},
		},
		Temperature: EnhancerTemperature,
		ModelClass:  llm.ModelClassSmall,
		MaxTokens:   512,
	}

	resp, err := e.Client.Complete(ctx, req)
	if err != nil || len(resp.Text) <= MinEnhancedLength {
		return response
	}
	return resp.Text
}

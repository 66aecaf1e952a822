// Package inmem provides an in-process Engine implementation: no durable
// workflow backend, suitable for tests, local development, and single-process
// deployments (teacher pattern: runtime/agent/engine/inmem).
package inmem

import (
	"context"

	"github.com/excelencia-digital/orquestador/internal/convlock"
	"github.com/excelencia-digital/orquestador/internal/engine"
)

// Engine drives engine.RunTurn behind a per-conversation advisory lock
// (spec.md §5: turns within one conversation_id run strictly serially).
type Engine struct {
	deps  engine.Deps
	locks *convlock.Keyed
}

// New constructs an in-process Engine. locks may be nil, in which case a
// default-sized convlock.Keyed is created.
func New(deps engine.Deps, locks *convlock.Keyed) *Engine {
	if locks == nil {
		locks = convlock.New(0)
	}
	return &Engine{deps: deps, locks: locks}
}

// Invoke implements engine.Engine.
func (e *Engine) Invoke(ctx context.Context, req engine.InvokeRequest) (engine.InvokeResult, error) {
	release, err := e.locks.Lock(ctx, req.ConversationID)
	if err != nil {
		return engine.InvokeResult{}, err
	}
	defer release()

	return engine.RunTurn(ctx, e.deps, req, nil)
}

// Stream implements engine.Engine. The returned channel is closed after
// the final or error event is sent.
func (e *Engine) Stream(ctx context.Context, req engine.InvokeRequest) (<-chan engine.StreamEvent, error) {
	out := make(chan engine.StreamEvent, 8)

	go func() {
		defer close(out)

		release, err := e.locks.Lock(ctx, req.ConversationID)
		if err != nil {
			out <- engine.StreamEvent{Type: engine.StreamEventError, Err: err}
			return
		}
		defer release()

		result, err := engine.RunTurn(ctx, e.deps, req, func(ev engine.StreamEvent) {
			out <- ev
		})
		if err != nil {
			out <- engine.StreamEvent{Type: engine.StreamEventError, Err: err}
			return
		}
		out <- engine.StreamEvent{Type: engine.StreamEventFinal, Data: &result}
	}()

	return out, nil
}

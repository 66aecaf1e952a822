// Package engine implements the Graph Engine (C11, spec.md §4.11): it
// compiles the orchestrator/worker/supervisor graph described in §4.10-§4.11
// and drives it to completion for one turn, with two swappable backends
// (package inmem, in-process; package temporalengine, durable) sharing the
// same RunTurn orchestration core.
package engine

import (
	"context"
	"time"

	"github.com/excelencia-digital/orquestador/internal/graph"
)

// DefaultTurnBudget is the suggested whole-turn timeout (spec.md §5).
const DefaultTurnBudget = 90 * time.Second

// InvokeRequest is the caller-facing request for one turn (spec.md §4.11
// "invoke(message, conversation_id, user_id, ...)").
type InvokeRequest struct {
	Message           string
	ConversationID    string
	UserID            string
	UserPhone         string
	OrganizationID    string
	BypassTargetAgent string // optional pre-router hint, consumed at most once
	QueryType         string // optional classification hint for the supervisor evaluator
}

// InvokeResult is the single-response API's return value.
type InvokeResult struct {
	Response              string
	State                 graph.State
	HumanHandoffRequested bool
}

// StreamEventType enumerates the kinds of events Stream emits (spec.md
// §4.11).
type StreamEventType string

const (
	StreamEventProgress StreamEventType = "stream_event"
	StreamEventFinal    StreamEventType = "final_result"
	StreamEventError    StreamEventType = "error"
)

// StreamEvent is one item from the Stream API.
type StreamEvent struct {
	Type        StreamEventType
	CurrentNode string
	StepCount   int
	Preview     string
	Data        *InvokeResult
	Err         error
}

// CheckpointStore persists the last committed graph.State per
// conversation_id (spec.md §4.11 "Checkpointing"). Implementations: package
// mongocheckpoint (durable), or an in-memory map for tests.
type CheckpointStore interface {
	SaveCheckpoint(ctx context.Context, conversationID string, state graph.State) error
	LoadCheckpoint(ctx context.Context, conversationID string) (graph.State, bool, error)
}

// Engine is the execution API both backends implement (spec.md §4.11
// "Execution API").
type Engine interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error)
	Stream(ctx context.Context, req InvokeRequest) (<-chan StreamEvent, error)
}

func previewOf(s string) string {
	const maxPreview = 120
	r := []rune(s)
	if len(r) <= maxPreview {
		return s
	}
	return string(r[:maxPreview]) + "…"
}

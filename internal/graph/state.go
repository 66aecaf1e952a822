// Package graph implements the Graph State data model (§3), the Graph Router
// pure functions (C8, spec.md §4.8), and the Node Executor (C9, spec.md
// §4.9). It is the frame passed between the orchestrator, worker, and
// supervisor nodes that the engine (package engine) compiles and drives.
package graph

import "github.com/excelencia-digital/orquestador/internal/worker"

// End is the sentinel "node" name the router functions return to signal
// termination (spec.md §4.8).
const End = "__end__"

// Message is one transcript entry in graph state, append-only.
type Message struct {
	Role      string
	Content   string
	AgentName string // set on assistant messages, empty otherwise
}

// Evaluation is the supervisor's structured quality assessment of a worker's
// response (C10a, spec.md §4.10).
type Evaluation struct {
	FallbackScore      float64
	FoundSpecificData  SpecificDataCounts
	Category           string
	CompletenessScore  float64
	RelevanceScore     float64
	ClarityScore       float64
	HelpfulnessScore   float64
	BaseScore          float64
	OverallScore       float64
	RAGHadResults      bool
	SuggestedAction    string
}

// SpecificDataCounts are the raw signals behind HasSpecific (C10a).
type SpecificDataCounts struct {
	ProperNames  int
	Numbers      int
	BulletLines  int
}

// ConversationFlow tracks multi-turn flow ownership, set by the orchestrator
// and consulted by C3's check_active_flow.
type ConversationFlow struct {
	ActiveAgent string
	Step        string
}

// State is the frame passed between nodes (spec.md §3 "Graph State").
//
// Reducers: Messages and AgentHistory are append-only (concatenation).
// RetrievedData is a shallow union with right-hand precedence. NextAgent
// follows last-non-null semantics (an empty string from a merge never
// clears a previously set value — see mergeResult). All other scalar
// fields are last-write-wins.
type State struct {
	Messages []Message

	ConversationID string
	UserID         string
	UserPhone      string
	OrganizationID string

	CurrentAgent string
	NextAgent    string
	AgentHistory []string

	RoutingAttempts      int
	SupervisorRetryCount int
	ErrorCount           int

	IsComplete             bool
	HumanHandoffRequested  bool
	NeedsReRouting         bool

	RetrievedData map[string]any

	SupervisorEvaluation *Evaluation
	ConversationFlow     *ConversationFlow

	RAGMetrics *worker.RAGMetrics

	InteractiveResponse *worker.InteractiveResponse

	BypassCount int
}

// Clone returns a deep-enough copy for safe per-turn mutation: slices and
// maps are copied, nested pointers are shared (they are replaced wholesale,
// never mutated in place, by the code that sets them).
func (s State) Clone() State {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.AgentHistory = append([]string(nil), s.AgentHistory...)
	if s.RetrievedData != nil {
		out.RetrievedData = make(map[string]any, len(s.RetrievedData))
		for k, v := range s.RetrievedData {
			out.RetrievedData[k] = v
		}
	}
	return out
}

// LastUserMessage returns the content of the most recent user-role message,
// or "" if none exists (spec.md §4.9 step 1).
func (s State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Invariant reports whether s currently satisfies the §3 structural
// invariants: len(AgentHistory) == RoutingAttempts + BypassCount; if set,
// CurrentAgent appeared last in AgentHistory. It does not check the
// post-supervisor exactly-one-flag invariant, which only holds after the
// supervisor node runs (callers check that separately — see
// ExactlyOneTerminalFlag).
func (s State) Invariant() bool {
	if len(s.AgentHistory) != s.RoutingAttempts+s.BypassCount {
		return false
	}
	if s.CurrentAgent != "" {
		if len(s.AgentHistory) == 0 || s.AgentHistory[len(s.AgentHistory)-1] != s.CurrentAgent {
			return false
		}
	}
	return true
}

// ExactlyOneTerminalFlag reports whether exactly one of IsComplete,
// NeedsReRouting, HumanHandoffRequested is true, the invariant spec.md §3
// requires "after supervisor runs".
func (s State) ExactlyOneTerminalFlag() bool {
	count := 0
	for _, b := range []bool{s.IsComplete, s.NeedsReRouting, s.HumanHandoffRequested} {
		if b {
			count++
		}
	}
	return count == 1
}

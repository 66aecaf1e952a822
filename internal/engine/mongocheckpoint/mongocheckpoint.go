// Package mongocheckpoint implements engine.CheckpointStore over
// go.mongodb.org/mongo-driver/v2 (spec.md §4.11 "persisted to a durable
// store"), mirroring internal/convctx/mongostore's upsert-by-key pattern.
package mongocheckpoint

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/excelencia-digital/orquestador/internal/engine"
	"github.com/excelencia-digital/orquestador/internal/graph"
)

const (
	defaultCollection = "graph_checkpoints"
	defaultTimeout    = 5 * time.Second
)

// Options configures the Mongo-backed checkpoint store.
type Options struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

// Store implements engine.CheckpointStore.
type Store struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// New constructs a Store.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongocheckpoint: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongocheckpoint: database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)
	return &Store{coll: coll, timeout: timeout}, nil
}

type checkpointDocument struct {
	ConversationID string    `bson:"_id"`
	State          bson.Raw  `bson:"state"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// SaveCheckpoint implements engine.CheckpointStore: atomic upsert keyed by
// conversationID.
func (s *Store) SaveCheckpoint(ctx context.Context, conversationID string, state graph.State) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := bson.Marshal(toDocState(state))
	if err != nil {
		return err
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"state": raw, "updated_at": time.Now()}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

// LoadCheckpoint implements engine.CheckpointStore.
func (s *Store) LoadCheckpoint(ctx context.Context, conversationID string) (graph.State, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc checkpointDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return graph.State{}, false, nil
	}
	if err != nil {
		return graph.State{}, false, err
	}

	var ds docState
	if err := bson.Unmarshal(doc.State, &ds); err != nil {
		return graph.State{}, false, err
	}
	return fromDocState(ds), true, nil
}

// docState is a bson-friendly projection of graph.State's exported,
// persistence-relevant fields; pointers and interface-valued fields
// (SupervisorEvaluation, RAGMetrics, InteractiveResponse) are intentionally
// omitted since a checkpoint only needs to resume routing, not replay
// per-turn advisory detail.
type docState struct {
	Messages             []docMessage   `bson:"messages"`
	ConversationID       string         `bson:"conversation_id"`
	UserID               string         `bson:"user_id"`
	UserPhone            string         `bson:"user_phone"`
	OrganizationID       string         `bson:"organization_id"`
	CurrentAgent         string         `bson:"current_agent"`
	NextAgent            string         `bson:"next_agent"`
	AgentHistory         []string       `bson:"agent_history"`
	RoutingAttempts      int            `bson:"routing_attempts"`
	SupervisorRetryCount int            `bson:"supervisor_retry_count"`
	ErrorCount           int            `bson:"error_count"`
	IsComplete           bool           `bson:"is_complete"`
	HumanHandoffRequested bool          `bson:"human_handoff_requested"`
	NeedsReRouting       bool           `bson:"needs_re_routing"`
	RetrievedData        map[string]any `bson:"retrieved_data"`
	BypassCount          int            `bson:"bypass_count"`
}

type docMessage struct {
	Role      string `bson:"role"`
	Content   string `bson:"content"`
	AgentName string `bson:"agent_name,omitempty"`
}

func toDocState(s graph.State) docState {
	messages := make([]docMessage, len(s.Messages))
	for i, m := range s.Messages {
		messages[i] = docMessage{Role: m.Role, Content: m.Content, AgentName: m.AgentName}
	}
	return docState{
		Messages:              messages,
		ConversationID:         s.ConversationID,
		UserID:                 s.UserID,
		UserPhone:              s.UserPhone,
		OrganizationID:         s.OrganizationID,
		CurrentAgent:           s.CurrentAgent,
		NextAgent:              s.NextAgent,
		AgentHistory:           s.AgentHistory,
		RoutingAttempts:        s.RoutingAttempts,
		SupervisorRetryCount:   s.SupervisorRetryCount,
		ErrorCount:             s.ErrorCount,
		IsComplete:             s.IsComplete,
		HumanHandoffRequested:  s.HumanHandoffRequested,
		NeedsReRouting:         s.NeedsReRouting,
		RetrievedData:          s.RetrievedData,
		BypassCount:            s.BypassCount,
	}
}

func fromDocState(ds docState) graph.State {
	messages := make([]graph.Message, len(ds.Messages))
	for i, m := range ds.Messages {
		messages[i] = graph.Message{Role: m.Role, Content: m.Content, AgentName: m.AgentName}
	}
	return graph.State{
		Messages:              messages,
		ConversationID:         ds.ConversationID,
		UserID:                 ds.UserID,
		UserPhone:              ds.UserPhone,
		OrganizationID:         ds.OrganizationID,
		CurrentAgent:           ds.CurrentAgent,
		NextAgent:              ds.NextAgent,
		AgentHistory:           ds.AgentHistory,
		RoutingAttempts:        ds.RoutingAttempts,
		SupervisorRetryCount:   ds.SupervisorRetryCount,
		ErrorCount:             ds.ErrorCount,
		IsComplete:             ds.IsComplete,
		HumanHandoffRequested:  ds.HumanHandoffRequested,
		NeedsReRouting:         ds.NeedsReRouting,
		RetrievedData:          ds.RetrievedData,
		BypassCount:            ds.BypassCount,
	}
}

var _ engine.CheckpointStore = (*Store)(nil)

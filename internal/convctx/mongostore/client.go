// Package mongostore implements the durable tier of convctx.Store on top of
// MongoDB, matching the schema described in spec.md §6: a
// conversation_contexts collection keyed by conversation_id, and an
// append-only conversation_messages collection referencing it.
package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/excelencia-digital/orquestador/internal/convctx"
)

const (
	defaultContextsCollection = "conversation_contexts"
	defaultMessagesCollection = "conversation_messages"
	defaultOpTimeout          = 5 * time.Second
)

// Options configures the Mongo-backed durable store.
type Options struct {
	// Client is a connected Mongo client. Required.
	Client *mongo.Client
	// Database is the database name. Required.
	Database string
	// ContextsCollection overrides the context collection name.
	ContextsCollection string
	// MessagesCollection overrides the message collection name.
	MessagesCollection string
	// Timeout bounds individual operations. Defaults to 5s.
	Timeout time.Duration
}

// Store implements convctx.Store's durable tier.
type Store struct {
	client   *mongo.Client
	contexts *mongo.Collection
	messages *mongo.Collection
	timeout  time.Duration
}

// New constructs a durable Store, ensuring required indexes exist.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	contextsName := opts.ContextsCollection
	if contextsName == "" {
		contextsName = defaultContextsCollection
	}
	messagesName := opts.MessagesCollection
	if messagesName == "" {
		messagesName = defaultMessagesCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	db := opts.Client.Database(opts.Database)
	contexts := db.Collection(contextsName)
	messages := db.Collection(messagesName)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, contexts, messages); err != nil {
		return nil, err
	}

	return &Store{client: opts.Client, contexts: contexts, messages: messages, timeout: timeout}, nil
}

// Name implements the Clue health.Pinger contract so this store can be
// registered in a readiness check alongside other dependencies.
func (s *Store) Name() string { return "convctx-mongo" }

// Ping implements health.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func ensureIndexes(ctx context.Context, contexts, messages *mongo.Collection) error {
	contextIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := contexts.Indexes().CreateOne(ctx, contextIndex); err != nil {
		return err
	}
	messageIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: 1},
		},
	}
	_, err := messages.Indexes().CreateOne(ctx, messageIndex)
	return err
}

// GetContext implements convctx.Store.
func (s *Store) GetContext(ctx context.Context, conversationID string) (*convctx.Context, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc contextDocument
	err := s.contexts.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := doc.toContext()
	return &c, nil
}

// SaveContext implements convctx.Store. Upserts keyed on conversation_id.
func (s *Store) SaveContext(ctx context.Context, c *convctx.Context) error {
	if c == nil || c.ConversationID == "" {
		return errors.New("mongostore: conversation_id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := fromContext(c)
	filter := bson.M{"conversation_id": c.ConversationID}
	update := bson.M{
		"$set": bson.M{
			"conversation_id":   doc.ConversationID,
			"organization_id":   doc.OrganizationID,
			"user_phone":        doc.UserPhone,
			"rolling_summary":   doc.RollingSummary,
			"topic_history":     doc.TopicHistory,
			"key_entities":      doc.KeyEntities,
			"total_turns":       doc.TotalTurns,
			"last_user_message": doc.LastUserMessage,
			"last_bot_response": doc.LastBotResponse,
			"last_agent":        doc.LastAgent,
			"updated_at":        doc.UpdatedAt,
			"last_activity_at":  doc.LastActivityAt,
		},
		"$setOnInsert": bson.M{"created_at": doc.CreatedAt},
	}
	_, err := s.contexts.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

// SaveMessage implements convctx.Store. Append-only insert.
func (s *Store) SaveMessage(ctx context.Context, m *convctx.Message) error {
	if m == nil || m.ConversationID == "" {
		return errors.New("mongostore: conversation_id is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.messages.InsertOne(ctx, fromMessage(m))
	return err
}

// GetRecentMessages implements convctx.Store.
func (s *Store) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*convctx.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		// Fetch the tail: sort descending, limit, then reverse in memory so the
		// result is ascending as the contract requires.
		findOpts = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	}
	cur, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*convctx.Message, len(docs))
	if limit > 0 {
		for i, d := range docs {
			m := d.toMessage()
			out[len(docs)-1-i] = &m
		}
		return out, nil
	}
	for i, d := range docs {
		m := d.toMessage()
		out[i] = &m
	}
	return out, nil
}

// ClearContext implements convctx.Store. Deletes the context document and all
// of its messages inside a session transaction so the deletion is atomic.
func (s *Store) ClearContext(ctx context.Context, conversationID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	sess, err := s.client.StartSession()
	if err != nil {
		// Standalone deployments may not support sessions/transactions; fall
		// back to best-effort sequential deletes rather than failing the clear.
		_, _ = s.messages.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
		_, err = s.contexts.DeleteOne(ctx, bson.M{"conversation_id": conversationID})
		return err
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		if _, err := s.messages.DeleteMany(sc, bson.M{"conversation_id": conversationID}); err != nil {
			return nil, err
		}
		if _, err := s.contexts.DeleteOne(sc, bson.M{"conversation_id": conversationID}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

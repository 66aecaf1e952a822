package mongostore

import (
	"time"

	"github.com/excelencia-digital/orquestador/internal/convctx"
)

type contextDocument struct {
	ConversationID  string            `bson:"conversation_id"`
	OrganizationID  string            `bson:"organization_id,omitempty"`
	UserPhone       string            `bson:"user_phone,omitempty"`
	RollingSummary  string            `bson:"rolling_summary,omitempty"`
	TopicHistory    []string          `bson:"topic_history,omitempty"`
	KeyEntities     map[string]string `bson:"key_entities,omitempty"`
	TotalTurns      int               `bson:"total_turns"`
	LastUserMessage string            `bson:"last_user_message,omitempty"`
	LastBotResponse string            `bson:"last_bot_response,omitempty"`
	LastAgent       string            `bson:"last_agent,omitempty"`
	CreatedAt       time.Time         `bson:"created_at"`
	UpdatedAt       time.Time         `bson:"updated_at"`
	LastActivityAt  time.Time         `bson:"last_activity_at"`
}

type messageDocument struct {
	ConversationID string         `bson:"conversation_id"`
	Sender         string         `bson:"sender"`
	Content        string         `bson:"content"`
	AgentName      string         `bson:"agent_name,omitempty"`
	CreatedAt      time.Time      `bson:"created_at"`
	Extra          map[string]any `bson:"extra_data,omitempty"`
}

func fromContext(c *convctx.Context) contextDocument {
	return contextDocument{
		ConversationID:  c.ConversationID,
		OrganizationID:  c.OrganizationID,
		UserPhone:       c.UserPhone,
		RollingSummary:  c.RollingSummary,
		TopicHistory:    append([]string(nil), c.TopicHistory...),
		KeyEntities:     c.KeyEntities,
		TotalTurns:      c.TotalTurns,
		LastUserMessage: c.LastUserMessage,
		LastBotResponse: c.LastBotResponse,
		LastAgent:       c.LastAgent,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
		LastActivityAt:  c.LastActivityAt.UTC(),
	}
}

func (d contextDocument) toContext() convctx.Context {
	return convctx.Context{
		ConversationID:  d.ConversationID,
		OrganizationID:  d.OrganizationID,
		UserPhone:       d.UserPhone,
		RollingSummary:  d.RollingSummary,
		TopicHistory:    append([]string(nil), d.TopicHistory...),
		KeyEntities:     d.KeyEntities,
		TotalTurns:      d.TotalTurns,
		LastUserMessage: d.LastUserMessage,
		LastBotResponse: d.LastBotResponse,
		LastAgent:       d.LastAgent,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		LastActivityAt:  d.LastActivityAt,
	}
}

func fromMessage(m *convctx.Message) messageDocument {
	return messageDocument{
		ConversationID: m.ConversationID,
		Sender:         string(m.Sender),
		Content:        m.Content,
		AgentName:      m.AgentName,
		CreatedAt:      m.CreatedAt.UTC(),
		Extra:          m.Extra,
	}
}

func (d messageDocument) toMessage() convctx.Message {
	return convctx.Message{
		ConversationID: d.ConversationID,
		Sender:         convctx.Sender(d.Sender),
		Content:        d.Content,
		AgentName:      d.AgentName,
		CreatedAt:      d.CreatedAt,
		Extra:          d.Extra,
	}
}

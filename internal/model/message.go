package model

import (
	"encoding/json"
	"time"
)

// Message is append-only, a child of a Conversation. Ordering within a
// conversation follows the server-assigned created_at, not client clocks.
type Message struct {
	ID             string        `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversationId"`
	Text           string        `db:"text" json:"text"`
	Sender         MessageSender `db:"sender" json:"sender"`
	CreatedAt      time.Time     `db:"created_at" json:"timestamp"`
}

// ToEventData returns JSON data for message_created events.
func (m *Message) ToEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"text":           m.Text,
		"sender":         m.Sender,
		"timestamp":      m.CreatedAt,
	})
	return data
}

type CreateMessageParams struct {
	ConversationID string
	Text           string
	Sender         MessageSender
}

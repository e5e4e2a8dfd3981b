package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type MessageRepository interface {
	FindByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	FindLastByConversation(ctx context.Context, conversationID string) (*model.Message, error)
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	CountBySender(ctx context.Context, sender model.MessageSender) (int, error)
	// WithTx returns a copy of the repository bound to the transaction
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db sqlxDB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) FindByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, conversationID)
	return msgs, err
}

func (r *messageRepo) FindLastByConversation(ctx context.Context, conversationID string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, conversationID)
	return HandleNotFound(&msg, err)
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages (conversation_id, text, sender)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ConversationID, params.Text, params.Sender)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) CountBySender(ctx context.Context, sender model.MessageSender) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages WHERE sender = $1
	`, sender)
	return count, err
}

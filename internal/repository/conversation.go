package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	List(ctx context.Context) ([]model.Conversation, error)
	Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error)
	UpdateLastMessage(ctx context.Context, id string, lastMessage string) error
	UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error
	UpdateLeadTemperature(ctx context.Context, id string, temperature model.LeadTemperature) error
	ResetUnread(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status model.LeadStatus) (int, error)
	CountByTemperature(ctx context.Context, temperature model.LeadTemperature) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountByStatusSince(ctx context.Context, status model.LeadStatus, since time.Time) (int, error)
	// WithTx returns a copy of the repository bound to the transaction
	WithTx(tx *sqlx.Tx) ConversationRepository
}

type conversationRepo struct {
	db sqlxDB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) WithTx(tx *sqlx.Tx) ConversationRepository {
	return &conversationRepo{db: tx}
}

func (r *conversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT * FROM conversations WHERE id = $1`, id)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) List(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		ORDER BY timestamp DESC
	`)
	return convs, err
}

func (r *conversationRepo) Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations
			(contact_name, last_message, lead_status, lead_temperature, unread_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.ContactName, params.LastMessage, params.LeadStatus,
		params.LeadTemperature, params.UnreadCount)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) UpdateLastMessage(ctx context.Context, id string, lastMessage string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET
			last_message = $2,
			timestamp = NOW()
		WHERE id = $1
	`, id, lastMessage)
	return err
}

func (r *conversationRepo) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET lead_status = $2 WHERE id = $1
	`, id, status)
	return err
}

func (r *conversationRepo) UpdateLeadTemperature(ctx context.Context, id string, temperature model.LeadTemperature) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET lead_temperature = $2 WHERE id = $1
	`, id, temperature)
	return err
}

func (r *conversationRepo) ResetUnread(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET unread_count = 0 WHERE id = $1
	`, id)
	return err
}

func (r *conversationRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations`)
	return count, err
}

func (r *conversationRepo) CountByStatus(ctx context.Context, status model.LeadStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE lead_status = $1
	`, status)
	return count, err
}

func (r *conversationRepo) CountByTemperature(ctx context.Context, temperature model.LeadTemperature) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE lead_temperature = $1
	`, temperature)
	return count, err
}

// CountCreatedSince buckets by created_at, not timestamp: timestamp moves on
// every message, so an old lead with fresh activity must not count as new.
func (r *conversationRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE created_at >= $1
	`, since)
	return count, err
}

func (r *conversationRepo) CountByStatusSince(ctx context.Context, status model.LeadStatus, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations WHERE lead_status = $1 AND created_at >= $2
	`, status, since)
	return count, err
}

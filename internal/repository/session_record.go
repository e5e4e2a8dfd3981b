package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type SessionRecordRepository interface {
	FindByID(ctx context.Context, id string) (*model.SessionRecord, error)
	FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.SessionRecord, error)
	Create(ctx context.Context, params model.CreateSessionRecordParams) (*model.SessionRecord, error)
	MarkPaired(ctx context.Context, id string, pairedAt time.Time) error
	MarkExpired(ctx context.Context, id string) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type sessionRecordRepo struct {
	db *sqlx.DB
}

func NewSessionRecordRepository(db *sqlx.DB) SessionRecordRepository {
	return &sessionRecordRepo{db: db}
}

func (r *sessionRecordRepo) FindByID(ctx context.Context, id string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM pairing_sessions WHERE id = $1`, id)
	return HandleNotFound(&rec, err)
}

func (r *sessionRecordRepo) FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.SessionRecord, error) {
	var recs []model.SessionRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM pairing_sessions
		WHERE owner_user_id = $1 AND status IN ('waiting_qr', 'qr_ready')
		ORDER BY created_at DESC
	`, ownerUserID)
	return recs, err
}

func (r *sessionRecordRepo) Create(ctx context.Context, params model.CreateSessionRecordParams) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	err := r.db.GetContext(ctx, &rec, `
		INSERT INTO pairing_sessions (id, owner_user_id, status, qr_payload, label, expires_at)
		VALUES ($1, $2, 'qr_ready', $3, $4, $5)
		RETURNING *
	`, params.ID, params.OwnerUserID, params.QRPayload, params.Label, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *sessionRecordRepo) MarkPaired(ctx context.Context, id string, pairedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET
			status = 'paired',
			paired_at = $2
		WHERE id = $1
	`, id, pairedAt)
	return err
}

func (r *sessionRecordRepo) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET status = 'expired'
		WHERE id = $1 AND status IN ('waiting_qr', 'qr_ready')
	`, id)
	return err
}

func (r *sessionRecordRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET status = 'expired'
		WHERE status IN ('waiting_qr', 'qr_ready')
		AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

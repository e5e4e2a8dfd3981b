package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type ConnectionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Connection, error)
	FindByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error)
	CountByOwner(ctx context.Context, ownerUserID string) (int, error)
	Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error)
	Delete(ctx context.Context, id string) error
}

type connectionRepo struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) FindByID(ctx context.Context, id string) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `SELECT * FROM connections WHERE id = $1`, id)
	return HandleNotFound(&conn, err)
}

func (r *connectionRepo) FindByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.SelectContext(ctx, &conns, `
		SELECT * FROM connections
		WHERE owner_user_id = $1
		ORDER BY connected_at DESC
	`, ownerUserID)
	return conns, err
}

func (r *connectionRepo) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM connections WHERE owner_user_id = $1
	`, ownerUserID)
	return count, err
}

func (r *connectionRepo) Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	var conn model.Connection
	err := r.db.GetContext(ctx, &conn, `
		INSERT INTO connections (owner_user_id, status, label, phone_number)
		VALUES ($1, 'connected', $2, $3)
		RETURNING *
	`, params.OwnerUserID, params.Label, params.PhoneNumber)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = $1`, id)
	return err
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// sqlxDB is the query surface repositories run against. Both *sqlx.DB and
// *sqlx.Tx satisfy it, which is what lets WithTx rebind a repository to a
// transaction.
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var _ sqlxDB = (*sqlx.DB)(nil)
var _ sqlxDB = (*sqlx.Tx)(nil)

// HandleNotFound converts sql.ErrNoRows into a nil result without error.
// Find* lookups treat a missing row as an answer, not a failure:
//
//	var conv model.Conversation
//	err := r.db.GetContext(ctx, &conv, query, id)
//	return HandleNotFound(&conv, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

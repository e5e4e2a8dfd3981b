package model

import (
	"time"
)

// AuthSession is a bearer-token session for the operator account.
type AuthSession struct {
	ID        string    `db:"id" json:"id"`
	TokenHash string    `db:"token_hash" json:"-"`
	UserID    string    `db:"user_id" json:"userId"`
	Email     string    `db:"email" json:"email"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateAuthSessionParams struct {
	TokenHash string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

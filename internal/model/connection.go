package model

import (
	"time"
)

// Connection is a linked WhatsApp number belonging to one owner.
type Connection struct {
	ID          string           `db:"id" json:"id"`
	OwnerUserID string           `db:"owner_user_id" json:"ownerUserId"`
	Status      ConnectionStatus `db:"status" json:"status"`
	Label       string           `db:"label" json:"label"`
	PhoneNumber string           `db:"phone_number" json:"phoneNumber"`
	ConnectedAt time.Time        `db:"connected_at" json:"connectedAt"`
}

type CreateConnectionParams struct {
	OwnerUserID string
	Label       string
	PhoneNumber string
}

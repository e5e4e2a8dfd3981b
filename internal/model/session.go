package model

import (
	"time"
)

// PairingSession is the ephemeral record held in the session store while a
// device-linking attempt is in progress. The persisted mirror the clients
// watch is SessionRecord.
type PairingSession struct {
	ID          string        `json:"id"`
	OwnerUserID string        `json:"ownerUserId"`
	Status      SessionStatus `json:"status"`
	QRPayload   string        `json:"qrPayload"`
	Label       string        `json:"label"`
	CreatedAt   time.Time     `json:"createdAt"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	PairedAt    *time.Time    `json:"pairedAt,omitempty"`
}

// Remaining returns the whole seconds left before expiry, never negative.
func (s *PairingSession) Remaining(now time.Time) int {
	diff := s.ExpiresAt.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}

// SessionRecord mirrors a PairingSession in the database so clients can
// observe status transitions. Records are never deleted, only superseded.
type SessionRecord struct {
	ID          string        `db:"id" json:"id"`
	OwnerUserID string        `db:"owner_user_id" json:"ownerUserId"`
	Status      SessionStatus `db:"status" json:"status"`
	QRPayload   string        `db:"qr_payload" json:"qrPayload"`
	Label       string        `db:"label" json:"label"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	ExpiresAt   time.Time     `db:"expires_at" json:"expiresAt"`
	PairedAt    *time.Time    `db:"paired_at" json:"pairedAt,omitempty"`
}

// Session rebuilds the ephemeral view from the persisted mirror, used when
// the live session is already gone from the store.
func (r *SessionRecord) Session() *PairingSession {
	return &PairingSession{
		ID:          r.ID,
		OwnerUserID: r.OwnerUserID,
		Status:      r.Status,
		QRPayload:   r.QRPayload,
		Label:       r.Label,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
		PairedAt:    r.PairedAt,
	}
}

type CreateSessionRecordParams struct {
	ID          string
	OwnerUserID string
	QRPayload   string
	Label       string
	ExpiresAt   time.Time
}

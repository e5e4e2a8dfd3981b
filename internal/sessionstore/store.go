// Package sessionstore holds in-progress pairing sessions. Sessions are
// ephemeral: they live only while a linking attempt is on screen, so they
// are kept out of the database, behind a small get/put/delete interface
// that a multi-instance deployment can point at shared storage.
package sessionstore

import (
	"context"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

type Store interface {
	Get(ctx context.Context, id string) (*model.PairingSession, error)
	Put(ctx context.Context, session *model.PairingSession) error
	Delete(ctx context.Context, id string) error
}

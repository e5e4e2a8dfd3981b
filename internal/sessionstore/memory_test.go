package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Get on missing id returns nil without error", func(t *testing.T) {
		store := NewMemoryStore()
		session, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("Put then Get round-trips the session", func(t *testing.T) {
		store := NewMemoryStore()
		now := time.Now()
		require.NoError(t, store.Put(ctx, &model.PairingSession{
			ID:          "sess-1",
			OwnerUserID: "owner-1",
			Status:      model.SessionStatusWaitingQR,
			QRPayload:   "2@abc|123|xyz",
			CreatedAt:   now,
			ExpiresAt:   now.Add(60 * time.Second),
		}))

		session, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "owner-1", session.OwnerUserID)
		assert.Equal(t, model.SessionStatusWaitingQR, session.Status)
	})

	t.Run("Get returns a copy, not a live reference", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put(ctx, &model.PairingSession{
			ID:     "sess-1",
			Status: model.SessionStatusWaitingQR,
		}))

		first, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		first.Status = model.SessionStatusPaired

		second, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusWaitingQR, second.Status)
	})

	t.Run("Delete removes the session", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Put(ctx, &model.PairingSession{ID: "sess-1"}))
		require.NoError(t, store.Delete(ctx, "sess-1"))

		session, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestRemaining(t *testing.T) {
	now := time.Now()

	t.Run("counts whole seconds until expiry", func(t *testing.T) {
		session := &model.PairingSession{ExpiresAt: now.Add(60 * time.Second)}
		assert.Equal(t, 60, session.Remaining(now))
	})

	t.Run("clamps to zero once expired", func(t *testing.T) {
		session := &model.PairingSession{ExpiresAt: now.Add(-time.Millisecond)}
		assert.Equal(t, 0, session.Remaining(now))
	})
}

package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imobiai/leadqual-server-go/internal/config"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/sessionstore"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

func testConfig() *config.Config {
	return &config.Config{
		QRSessionTTLSeconds:    60,
		AIResponseDelayMillis:  1500,
		MaxConnectionsPerOwner: 10,
		MaxSessionReissues:     3,
	}
}

func newPairingFixture(t *testing.T) (*PairingService, *sessionstore.MemoryStore, *mockSessionRecordRepo, *mockConnectionRepo, *capturePublisher) {
	t.Helper()
	store := sessionstore.NewMemoryStore()
	recordRepo := new(mockSessionRecordRepo)
	connRepo := new(mockConnectionRepo)
	pub := &capturePublisher{}
	svc := NewPairingService(store, recordRepo, connRepo, pub, testConfig())
	t.Cleanup(svc.Close)
	return svc, store, recordRepo, connRepo, pub
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("creates waiting_qr session expiring exactly after the TTL", func(t *testing.T) {
		svc, store, recordRepo, connRepo, pub := newPairingFixture(t)

		fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return fixed }

		connRepo.On("CountByOwner", mock.Anything, "owner-1").Return(3, nil)
		recordRepo.On("Create", mock.Anything, mock.Anything).Return(&model.SessionRecord{}, nil)

		session, err := svc.CreateSession(ctx, "owner-1", "Loja Centro")
		require.NoError(t, err)

		assert.Equal(t, model.SessionStatusWaitingQR, session.Status)
		assert.NotEmpty(t, session.QRPayload)
		assert.Equal(t, fixed, session.CreatedAt)
		assert.Equal(t, fixed.Add(60*time.Second), session.ExpiresAt)
		assert.Equal(t, "Loja Centro", session.Label)

		// The stored document has already advanced past the handshake.
		stored, err := store.Get(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, model.SessionStatusQRReady, stored.Status)

		assert.Contains(t, pub.eventTypes(), sse.EventSessionQR)
	})

	t.Run("qr payload carries version, session id and issue time", func(t *testing.T) {
		svc, _, recordRepo, connRepo, _ := newPairingFixture(t)

		connRepo.On("CountByOwner", mock.Anything, "owner-1").Return(0, nil)
		recordRepo.On("Create", mock.Anything, mock.Anything).Return(&model.SessionRecord{}, nil)

		session, err := svc.CreateSession(ctx, "owner-1", "")
		require.NoError(t, err)

		pattern := regexp.MustCompile(`^2@` + regexp.QuoteMeta(session.ID) + `\|\d+\|[0-9a-f]{16}$`)
		assert.True(t, pattern.MatchString(session.QRPayload), "unexpected payload: %s", session.QRPayload)
	})

	t.Run("rejects when the owner is at the connection cap", func(t *testing.T) {
		svc, _, _, connRepo, _ := newPairingFixture(t)

		connRepo.On("CountByOwner", mock.Anything, "owner-1").Return(10, nil)

		_, err := svc.CreateSession(ctx, "owner-1", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeConnectionLimit, apperrors.GetCode(err))
	})
}

func TestMarkPaired(t *testing.T) {
	ctx := context.Background()

	seedSession := func(t *testing.T, store *sessionstore.MemoryStore) *model.PairingSession {
		t.Helper()
		session := &model.PairingSession{
			ID:          "sess-1",
			OwnerUserID: "owner-1",
			Status:      model.SessionStatusQRReady,
			QRPayload:   "2@sess-1|1756555200000|deadbeefdeadbeef",
			Label:       "Loja Centro",
			CreatedAt:   time.Now(),
			ExpiresAt:   time.Now().Add(time.Minute),
		}
		require.NoError(t, store.Put(ctx, session))
		return session
	}

	t.Run("unknown session returns not found and changes nothing", func(t *testing.T) {
		svc, _, recordRepo, connRepo, _ := newPairingFixture(t)

		_, err := svc.MarkPaired(ctx, "missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))

		recordRepo.AssertNotCalled(t, "MarkPaired", mock.Anything, mock.Anything, mock.Anything)
		connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("pairs the session and materializes a connection", func(t *testing.T) {
		svc, store, recordRepo, connRepo, pub := newPairingFixture(t)
		seedSession(t, store)

		recordRepo.On("MarkPaired", mock.Anything, "sess-1", mock.Anything).Return(nil)
		connRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateConnectionParams) bool {
			return p.OwnerUserID == "owner-1" && p.Label == "Loja Centro"
		})).Return(&model.Connection{ID: "conn-1", OwnerUserID: "owner-1"}, nil)

		conn, err := svc.MarkPaired(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, conn)
		assert.Equal(t, "conn-1", conn.ID)

		stored, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusPaired, stored.Status)
		require.NotNil(t, stored.PairedAt)

		assert.Contains(t, pub.eventTypes(), sse.EventSessionPaired)
	})

	t.Run("repeating the call refreshes pairedAt without a second connection", func(t *testing.T) {
		svc, store, recordRepo, connRepo, _ := newPairingFixture(t)
		seedSession(t, store)

		recordRepo.On("MarkPaired", mock.Anything, "sess-1", mock.Anything).Return(nil)
		connRepo.On("Create", mock.Anything, mock.Anything).Return(&model.Connection{ID: "conn-1"}, nil)

		_, err := svc.MarkPaired(ctx, "sess-1")
		require.NoError(t, err)

		first, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)

		conn, err := svc.MarkPaired(ctx, "sess-1")
		require.NoError(t, err)
		assert.Nil(t, conn)

		second, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.True(t, !second.PairedAt.Before(*first.PairedAt))

		connRepo.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("expired session cannot pair", func(t *testing.T) {
		svc, store, _, connRepo, _ := newPairingFixture(t)
		session := seedSession(t, store)
		session.Status = model.SessionStatusExpired
		require.NoError(t, store.Put(ctx, session))

		_, err := svc.MarkPaired(ctx, "sess-1")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeSessionExpired, apperrors.GetCode(err))
		connRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling an unknown session is not an error", func(t *testing.T) {
		svc, _, _, _, _ := newPairingFixture(t)
		assert.NoError(t, svc.Cancel(ctx, "missing"))
	})

	t.Run("cancelling drops the live session but leaves the record alone", func(t *testing.T) {
		svc, store, recordRepo, _, _ := newPairingFixture(t)
		require.NoError(t, store.Put(ctx, &model.PairingSession{
			ID:        "sess-1",
			Status:    model.SessionStatusQRReady,
			ExpiresAt: time.Now().Add(time.Minute),
		}))

		require.NoError(t, svc.Cancel(ctx, "sess-1"))

		stored, err := store.Get(ctx, "sess-1")
		require.NoError(t, err)
		assert.Nil(t, stored)
		recordRepo.AssertNotCalled(t, "MarkExpired", mock.Anything, mock.Anything)
	})
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to the persisted record when the store let go", func(t *testing.T) {
		svc, _, recordRepo, _, _ := newPairingFixture(t)

		recordRepo.On("FindByID", mock.Anything, "sess-1").Return(&model.SessionRecord{
			ID:          "sess-1",
			OwnerUserID: "owner-1",
			Status:      model.SessionStatusExpired,
			ExpiresAt:   time.Now().Add(-time.Hour),
		}, nil)

		session, remaining, err := svc.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, model.SessionStatusExpired, session.Status)
		assert.Zero(t, remaining)
	})

	t.Run("unknown everywhere returns nil", func(t *testing.T) {
		svc, _, recordRepo, _, _ := newPairingFixture(t)
		recordRepo.On("FindByID", mock.Anything, "missing").Return(nil, nil)

		session, _, err := svc.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestActiveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers the live store view of the newest record", func(t *testing.T) {
		svc, store, recordRepo, _, _ := newPairingFixture(t)

		recordRepo.On("FindActiveByOwner", mock.Anything, "owner-1").Return([]model.SessionRecord{
			{ID: "sess-2", OwnerUserID: "owner-1", Status: model.SessionStatusQRReady},
			{ID: "sess-1", OwnerUserID: "owner-1", Status: model.SessionStatusQRReady},
		}, nil)

		require.NoError(t, store.Put(ctx, &model.PairingSession{
			ID:          "sess-2",
			OwnerUserID: "owner-1",
			Status:      model.SessionStatusQRReady,
			QRPayload:   "2@sess-2|1756555200000|deadbeefdeadbeef",
			ExpiresAt:   time.Now().Add(45 * time.Second),
		}))

		session, remaining, err := svc.ActiveSession(ctx, "owner-1")
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "sess-2", session.ID)
		assert.NotEmpty(t, session.QRPayload)
		assert.Greater(t, remaining, 0)
	})

	t.Run("no active records means no session", func(t *testing.T) {
		svc, _, recordRepo, _, _ := newPairingFixture(t)
		recordRepo.On("FindActiveByOwner", mock.Anything, "owner-1").Return([]model.SessionRecord{}, nil)

		session, _, err := svc.ActiveSession(ctx, "owner-1")
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestSynthesizePhoneNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^\+55 \(11\) 9\d{4}-\d{4}$`)
	for i := 0; i < 20; i++ {
		phone := synthesizePhoneNumber()
		assert.True(t, pattern.MatchString(phone), "unexpected phone: %s", phone)
	}
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/audit"
	"github.com/imobiai/leadqual-server-go/internal/config"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/sessionstore"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

type PairingService struct {
	store      sessionstore.Store
	recordRepo repository.SessionRecordRepository
	connRepo   repository.ConnectionRepository
	broker     sse.Publisher
	cfg        *config.Config

	now  func() time.Time
	stop chan struct{}
}

func NewPairingService(
	store sessionstore.Store,
	recordRepo repository.SessionRecordRepository,
	connRepo repository.ConnectionRepository,
	broker sse.Publisher,
	cfg *config.Config,
) *PairingService {
	return &PairingService{
		store:      store,
		recordRepo: recordRepo,
		connRepo:   connRepo,
		broker:     broker,
		cfg:        cfg,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// Close stops all session watchers. Safe to call once during shutdown.
func (s *PairingService) Close() {
	close(s.stop)
}

// CreateSession opens a device-linking attempt for the owner. The session
// starts as waiting_qr, transitions to qr_ready once the payload is issued,
// and expires exactly QRSessionTTL after creation unless paired first.
func (s *PairingService) CreateSession(ctx context.Context, ownerUserID, label string) (*model.PairingSession, error) {
	count, err := s.connRepo.CountByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("count connections: %w", err)
	}
	if count >= s.cfg.MaxConnectionsPerOwner {
		return nil, apperrors.ConnectionLimit(s.cfg.MaxConnectionsPerOwner)
	}

	session, err := s.issueSession(ctx, ownerUserID, label)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionCreate,
		UserID:    ownerUserID,
		SessionID: session.ID,
	})

	go s.watch(session.ID, ownerUserID, label, 0)

	return session, nil
}

// issueSession builds and stores a fresh session. Split out of CreateSession
// so the watcher can reissue without re-running the connection cap check.
// The returned snapshot is still waiting_qr; the stored session moves to
// qr_ready once the payload document is in place.
func (s *PairingService) issueSession(ctx context.Context, ownerUserID, label string) (*model.PairingSession, error) {
	createdAt := s.now()
	session := &model.PairingSession{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Status:      model.SessionStatusWaitingQR,
		Label:       label,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.cfg.QRSessionTTL()),
	}
	session.QRPayload = buildQRPayload(session.ID, createdAt)
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if _, err := s.recordRepo.Create(ctx, model.CreateSessionRecordParams{
		ID:          session.ID,
		OwnerUserID: ownerUserID,
		QRPayload:   session.QRPayload,
		Label:       label,
		ExpiresAt:   session.ExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("persist session record: %w", err)
	}

	if err := s.broker.PublishJSON(ctx, ownerUserID, sse.EventSessionQR, session); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("publish session_qr")
	}

	issued := *session

	session.Status = model.SessionStatusQRReady
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("ownerUserId", ownerUserID).
		Time("expiresAt", session.ExpiresAt).
		Msg("pairing session created")

	return &issued, nil
}

// GetSession returns the session plus seconds remaining, or nil if the
// session is unknown. A session the store already let go of is rebuilt from
// the persisted record, so clients can still read terminal statuses.
func (s *PairingService) GetSession(ctx context.Context, id string) (*model.PairingSession, int, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		record, err := s.recordRepo.FindByID(ctx, id)
		if err != nil {
			return nil, 0, fmt.Errorf("load session record: %w", err)
		}
		if record == nil {
			return nil, 0, nil
		}
		session = record.Session()
	}
	return session, session.Remaining(s.now()), nil
}

// ActiveSession returns the owner's newest non-terminal session, preferring
// the live store view over the persisted record. Used by clients resuming a
// pairing attempt after a reload.
func (s *PairingService) ActiveSession(ctx context.Context, ownerUserID string) (*model.PairingSession, int, error) {
	records, err := s.recordRepo.FindActiveByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, 0, fmt.Errorf("load active sessions: %w", err)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	record := records[0]
	session, err := s.store.Get(ctx, record.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = record.Session()
	}
	return session, session.Remaining(s.now()), nil
}

// MarkPaired completes the linking handshake. Repeating the call on an
// already paired session succeeds and refreshes pairedAt.
func (s *PairingService) MarkPaired(ctx context.Context, id string) (*model.Connection, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}
	if session.Status == model.SessionStatusExpired {
		return nil, apperrors.SessionExpired()
	}

	alreadyPaired := session.Status == model.SessionStatusPaired

	pairedAt := s.now()
	session.Status = model.SessionStatusPaired
	session.PairedAt = &pairedAt
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.recordRepo.MarkPaired(ctx, id, pairedAt); err != nil {
		return nil, fmt.Errorf("mark session record paired: %w", err)
	}

	if alreadyPaired {
		// The connection was materialized on the first pair.
		return nil, nil
	}

	label := session.Label
	if label == "" {
		label = "WhatsApp Business"
	}
	conn, err := s.connRepo.Create(ctx, model.CreateConnectionParams{
		OwnerUserID: session.OwnerUserID,
		Label:       label,
		PhoneNumber: synthesizePhoneNumber(),
	})
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	if err := s.broker.PublishJSON(ctx, session.OwnerUserID, sse.EventSessionPaired, map[string]any{
		"sessionId":  session.ID,
		"connection": conn,
	}); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("publish session_paired")
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionPaired,
		UserID:    session.OwnerUserID,
		SessionID: session.ID,
	})

	log.Info().
		Str("sessionId", session.ID).
		Str("connectionId", conn.ID).
		Msg("pairing session paired")

	return conn, nil
}

// Cancel abandons a session before it pairs: the live reference is dropped
// and its watcher winds down, but the persisted record is left alone for the
// cleanup job. Cancelling an unknown session is not an error.
func (s *PairingService) Cancel(ctx context.Context, id string) error {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	log.Info().Str("sessionId", id).Msg("pairing session cancelled")
	return nil
}

// buildQRPayload mimics the multi-part payload device clients expect:
// a version tag, the session id, issue time in unix millis and a nonce.
func buildQRPayload(sessionID string, issuedAt time.Time) string {
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)
	return fmt.Sprintf("2@%s|%d|%s", sessionID, issuedAt.UnixMilli(), hex.EncodeToString(nonce))
}

// synthesizePhoneNumber produces a Brazilian mobile number for a freshly
// paired connection. Real device metadata never reaches this system.
func synthesizePhoneNumber() string {
	return fmt.Sprintf("+55 (11) 9%s-%s", randomDigits(4), randomDigits(4))
}

func randomDigits(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			digits[i] = '0'
			continue
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

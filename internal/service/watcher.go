package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/audit"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

const watchTickInterval = time.Second

// watch polls one session until it reaches a terminal state. When the
// countdown hits zero the session is expired and a replacement is issued,
// up to MaxSessionReissues times; after that the chain ends with a
// session_failed event and the owner must start over.
func (s *PairingService) watch(sessionID, ownerUserID, label string, reissues int) {
	ticker := time.NewTicker(watchTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		session, err := s.store.Get(ctx, sessionID)
		if err != nil {
			cancel()
			log.Error().Err(err).Str("sessionId", sessionID).Msg("watch: load session")
			continue
		}
		if session == nil || session.Status.Terminal() {
			cancel()
			return
		}

		if session.Remaining(s.now()) > 0 {
			cancel()
			continue
		}

		s.expireAndMaybeReissue(ctx, session, ownerUserID, label, reissues)
		cancel()
		return
	}
}

func (s *PairingService) expireAndMaybeReissue(ctx context.Context, session *model.PairingSession, ownerUserID, label string, reissues int) {
	session.Status = model.SessionStatusExpired
	if err := s.store.Put(ctx, session); err != nil {
		log.Error().Err(err).Str("sessionId", session.ID).Msg("watch: store expired session")
	}
	if err := s.recordRepo.MarkExpired(ctx, session.ID); err != nil {
		log.Error().Err(err).Str("sessionId", session.ID).Msg("watch: mark record expired")
	}

	if err := s.broker.PublishJSON(ctx, ownerUserID, sse.EventSessionExpired, map[string]any{
		"sessionId": session.ID,
	}); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("publish session_expired")
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventSessionExpired,
		UserID:    ownerUserID,
		SessionID: session.ID,
	})

	if reissues >= s.cfg.MaxSessionReissues {
		log.Warn().
			Str("ownerUserId", ownerUserID).
			Int("reissues", reissues).
			Msg("pairing session chain exhausted")
		if err := s.broker.PublishJSON(ctx, ownerUserID, sse.EventSessionFailed, map[string]any{
			"sessionId": session.ID,
			"reason":    "max reissues reached",
		}); err != nil {
			log.Warn().Err(err).Msg("publish session_failed")
		}
		return
	}

	replacement, err := s.issueSession(ctx, ownerUserID, label)
	if err != nil {
		log.Error().Err(err).Str("ownerUserId", ownerUserID).Msg("watch: reissue session")
		return
	}

	log.Info().
		Str("expiredSessionId", session.ID).
		Str("sessionId", replacement.ID).
		Int("reissue", reissues+1).
		Msg("pairing session reissued")

	go s.watch(replacement.ID, ownerUserID, label, reissues+1)
}

package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/audit"
	"github.com/imobiai/leadqual-server-go/internal/config"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/sse"
	"github.com/imobiai/leadqual-server-go/internal/util"
)

type ConnectionService struct {
	connRepo repository.ConnectionRepository
	broker   sse.Publisher
	cfg      *config.Config
}

func NewConnectionService(connRepo repository.ConnectionRepository, broker sse.Publisher, cfg *config.Config) *ConnectionService {
	return &ConnectionService{
		connRepo: connRepo,
		broker:   broker,
		cfg:      cfg,
	}
}

func (s *ConnectionService) List(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	return s.connRepo.FindByOwner(ctx, ownerUserID)
}

// Create registers a number by hand, bypassing the QR handshake. The same
// per-owner cap applies as for paired connections.
func (s *ConnectionService) Create(ctx context.Context, ownerUserID, label, phoneNumber string) (*model.Connection, error) {
	if label == "" {
		return nil, apperrors.MissingRequired("label")
	}
	if phoneNumber == "" {
		return nil, apperrors.MissingRequired("phoneNumber")
	}
	if !util.IsValidPhoneNumber(phoneNumber) {
		return nil, apperrors.InvalidInput("phoneNumber", "must be a valid phone number")
	}

	count, err := s.connRepo.CountByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("count connections: %w", err)
	}
	if count >= s.cfg.MaxConnectionsPerOwner {
		return nil, apperrors.ConnectionLimit(s.cfg.MaxConnectionsPerOwner)
	}

	conn, err := s.connRepo.Create(ctx, model.CreateConnectionParams{
		OwnerUserID: ownerUserID,
		Label:       label,
		PhoneNumber: phoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	if err := s.broker.PublishJSON(ctx, ownerUserID, sse.EventConnectionCreated, conn); err != nil {
		log.Warn().Err(err).Str("connectionId", conn.ID).Msg("publish connection_created")
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventConnectionCreate,
		UserID: ownerUserID,
		Details: map[string]interface{}{
			"connection_id": conn.ID,
		},
	})

	return conn, nil
}

func (s *ConnectionService) Delete(ctx context.Context, ownerUserID, id string) error {
	conn, err := s.connRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load connection: %w", err)
	}
	if conn == nil || conn.OwnerUserID != ownerUserID {
		return apperrors.NotFound("Connection")
	}

	if err := s.connRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}

	if err := s.broker.PublishJSON(ctx, ownerUserID, sse.EventConnectionDeleted, map[string]any{
		"id": id,
	}); err != nil {
		log.Warn().Err(err).Str("connectionId", id).Msg("publish connection_deleted")
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventConnectionDelete,
		UserID: ownerUserID,
		Details: map[string]interface{}{
			"connection_id": id,
		},
	})

	return nil
}

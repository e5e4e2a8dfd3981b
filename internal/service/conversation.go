package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/database"
	apperrors "github.com/imobiai/leadqual-server-go/internal/errors"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/sse"
	"github.com/imobiai/leadqual-server-go/internal/util"
)

// Seed data for simulated inbound leads. The profile starts with every
// qualification field still open.
var (
	simulatedLeadNames = []string{
		"João Silva", "Maria Oliveira", "Carlos Santos", "Ana Costa", "Pedro Rocha",
	}
	simulatedLeadMessages = []string{
		"Olá, vi um anúncio de um apartamento no centro e gostaria de saber mais.",
		"Oi, estou procurando uma casa com 3 quartos na região sul.",
		"Boa tarde! Qual o valor daquele sobrado que vocês postaram?",
		"Tenho interesse em investir em um imóvel comercial, vocês tem opções?",
		"Gostaria de fazer uma simulação de financiamento para um imóvel de 400 mil.",
	}
	initialMissingFields = []string{"Região", "Tipo de Imóvel", "Quartos", "Orçamento", "Entrada"}
)

// ConversationDetail bundles the thread view the inbox renders.
type ConversationDetail struct {
	Conversation *model.Conversation `json:"conversation"`
	Messages     []model.Message     `json:"messages"`
	Profile      *model.LeadProfile  `json:"profile,omitempty"`
}

// txRunner is the slice of *database.DB this service needs.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type ConversationService struct {
	db          txRunner
	convRepo    repository.ConversationRepository
	msgRepo     repository.MessageRepository
	profileRepo repository.LeadProfileRepository
	responder   *ResponderService
	broker      sse.Publisher
	ownerUserID string
}

func NewConversationService(
	db txRunner,
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	profileRepo repository.LeadProfileRepository,
	responder *ResponderService,
	broker sse.Publisher,
	ownerUserID string,
) *ConversationService {
	return &ConversationService{
		db:          db,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		profileRepo: profileRepo,
		responder:   responder,
		broker:      broker,
		ownerUserID: ownerUserID,
	}
}

func (s *ConversationService) List(ctx context.Context) ([]model.Conversation, error) {
	return s.convRepo.List(ctx)
}

func (s *ConversationService) Get(ctx context.Context, id string) (*ConversationDetail, error) {
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, apperrors.NotFound("Conversation")
	}

	messages, err := s.msgRepo.FindByConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	profile, err := s.profileRepo.FindByConversation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return &ConversationDetail{
		Conversation: conv,
		Messages:     messages,
		Profile:      profile,
	}, nil
}

// SimulateLead fabricates an inbound WhatsApp contact: a conversation, its
// first client message and a mostly empty lead profile. The AI responder is
// scheduled immediately, same as for a real inbound message.
func (s *ConversationService) SimulateLead(ctx context.Context) (*ConversationDetail, error) {
	name := simulatedLeadNames[rand.Intn(len(simulatedLeadNames))]
	text := simulatedLeadMessages[rand.Intn(len(simulatedLeadMessages))]

	// The conversation, its first message and the profile stand or fall
	// together; a partial lead never becomes visible.
	var conv *model.Conversation
	var msg *model.Message
	var profile *model.LeadProfile
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		conv, err = s.convRepo.WithTx(tx).Create(ctx, model.CreateConversationParams{
			ContactName:     name,
			LastMessage:     text,
			LeadStatus:      model.LeadStatusNovo,
			LeadTemperature: model.TemperatureMorno,
			UnreadCount:     1,
		})
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}

		msg, err = s.msgRepo.WithTx(tx).Create(ctx, model.CreateMessageParams{
			ConversationID: conv.ID,
			Text:           text,
			Sender:         model.SenderClient,
		})
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		profile, err = s.profileRepo.WithTx(tx).Replace(ctx, &model.LeadProfile{
			ConversationID: conv.ID,
			Name:           name,
			MissingFields:  pq.StringArray(initialMissingFields),
		})
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.broker.PublishJSON(ctx, s.ownerUserID, sse.EventConversationCreated, conv); err != nil {
		log.Warn().Err(err).Str("conversationId", conv.ID).Msg("publish conversation_created")
	}
	if err := s.broker.Publish(ctx, s.ownerUserID, sse.Event{
		Type: sse.EventMessageCreated,
		Data: msg.ToEventData(),
	}); err != nil {
		log.Warn().Err(err).Str("conversationId", conv.ID).Msg("publish message_created")
	}

	s.responder.Schedule(conv.ID)

	log.Info().
		Str("conversationId", conv.ID).
		Str("contactName", name).
		Msg("simulated lead created")

	return &ConversationDetail{
		Conversation: conv,
		Messages:     []model.Message{*msg},
		Profile:      profile,
	}, nil
}

// SendMessage appends a message to the thread and denormalizes the preview
// onto the conversation. A client message arms the AI responder; an agent or
// ai message cancels any pending reply since a human took over.
func (s *ConversationService) SendMessage(ctx context.Context, conversationID, text string, sender model.MessageSender) (*model.Message, error) {
	if text == "" {
		return nil, apperrors.MissingRequired("text")
	}
	if !util.IsValidEnum(string(sender), model.ValidSenders()) {
		return nil, apperrors.InvalidInput("sender", "must be one of client, agent, ai")
	}

	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, apperrors.NotFound("Conversation")
	}

	msg, err := s.msgRepo.Create(ctx, model.CreateMessageParams{
		ConversationID: conversationID,
		Text:           text,
		Sender:         sender,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.convRepo.UpdateLastMessage(ctx, conversationID, text); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	if err := s.broker.Publish(ctx, s.ownerUserID, sse.Event{
		Type: sse.EventMessageCreated,
		Data: msg.ToEventData(),
	}); err != nil {
		log.Warn().Err(err).Str("conversationId", conversationID).Msg("publish message_created")
	}

	if sender == model.SenderClient {
		s.responder.Schedule(conversationID)
	} else {
		s.responder.CancelPending(conversationID)
	}

	return msg, nil
}

// MarkRead clears the unread counter.
func (s *ConversationService) MarkRead(ctx context.Context, id string) error {
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return apperrors.NotFound("Conversation")
	}
	return s.convRepo.ResetUnread(ctx, id)
}

// UpdateLeadStatus sets an operator-chosen pipeline stage.
func (s *ConversationService) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	if status == "" {
		return apperrors.MissingRequired("leadStatus")
	}
	if !util.IsValidEnum(string(status), model.ValidLeadStatuses()) {
		return apperrors.InvalidInput("leadStatus", "unknown pipeline stage")
	}
	conv, err := s.convRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return apperrors.NotFound("Conversation")
	}
	return s.convRepo.UpdateLeadStatus(ctx, id, status)
}

func (s *ConversationService) GetProfile(ctx context.Context, conversationID string) (*model.LeadProfile, error) {
	profile, err := s.profileRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("Lead profile")
	}
	return profile, nil
}

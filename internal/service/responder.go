package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/imobiai/leadqual-server-go/internal/config"
	"github.com/imobiai/leadqual-server-go/internal/genai"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

// systemInstruction shapes the assistant's tone. Compliance requirement:
// the assistant must never promise credit approval.
const systemInstruction = "Você é um assistente de pré-atendimento imobiliário humano, empático e eficiente. " +
	"Seu objetivo é qualificar o lead naturalmente, coletando informações sobre região, tipo de imóvel, orçamento e entrada. " +
	"Use termos como 'estimado' e 'sujeito a aprovação bancária'. Nunca garanta aprovação de crédito."

// ResponderService drafts AI replies to client messages. Each reply is
// debounced so the assistant does not answer mid-typing, and a per-conversation
// in-flight guard keeps generations from overlapping.
type ResponderService struct {
	msgRepo     repository.MessageRepository
	convRepo    repository.ConversationRepository
	profileRepo repository.LeadProfileRepository
	generator   genai.Generator
	broker      sse.Publisher
	ownerUserID string
	delay       time.Duration

	mu       sync.Mutex
	pending  map[string]*time.Timer
	inFlight map[string]bool
}

func NewResponderService(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	profileRepo repository.LeadProfileRepository,
	generator genai.Generator,
	broker sse.Publisher,
	cfg *config.Config,
	ownerUserID string,
) *ResponderService {
	return &ResponderService{
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		profileRepo: profileRepo,
		generator:   generator,
		broker:      broker,
		ownerUserID: ownerUserID,
		delay:       cfg.AIResponseDelay(),
		pending:     make(map[string]*time.Timer),
		inFlight:    make(map[string]bool),
	}
}

// Schedule queues a reply for the conversation after the debounce delay.
// A newer call resets the timer; a conversation already generating is left
// alone so replies never overlap.
func (s *ResponderService) Schedule(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[conversationID] {
		return
	}
	if timer, ok := s.pending[conversationID]; ok {
		timer.Stop()
	}
	s.pending[conversationID] = time.AfterFunc(s.delay, func() {
		s.fire(conversationID)
	})
}

// CancelPending drops a queued reply without generating. Used when the
// conversation moves on before the timer fires.
func (s *ResponderService) CancelPending(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.pending[conversationID]; ok {
		timer.Stop()
		delete(s.pending, conversationID)
	}
}

// Trigger runs a generation pass immediately, skipping the debounce. The
// in-flight guard still applies.
func (s *ResponderService) Trigger(conversationID string) {
	s.CancelPending(conversationID)
	go s.fire(conversationID)
}

func (s *ResponderService) fire(conversationID string) {
	s.mu.Lock()
	delete(s.pending, conversationID)
	if s.inFlight[conversationID] {
		s.mu.Unlock()
		return
	}
	s.inFlight[conversationID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, conversationID)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := s.Respond(ctx, conversationID); err != nil {
		log.Error().Err(err).Str("conversationId", conversationID).Msg("ai response failed")
	}
}

// Respond runs one full generation pass: reply, then extract and overwrite
// the lead profile. The conversation is left untouched when any step fails.
func (s *ResponderService) Respond(ctx context.Context, conversationID string) error {
	// The reply is only warranted while the client still has the last word,
	// checked against a single row before the full history is loaded.
	last, err := s.msgRepo.FindLastByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load last message: %w", err)
	}
	if last == nil || last.Sender != model.SenderClient {
		return nil
	}

	messages, err := s.msgRepo.FindByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	history := make([]genai.ChatTurn, 0, len(messages))
	for _, m := range messages {
		role := "model"
		if m.Sender == model.SenderClient {
			role = "user"
		}
		history = append(history, genai.ChatTurn{Role: role, Text: m.Text})
	}

	reply, err := s.generator.GenerateReply(ctx, history, systemInstruction)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	aiMsg, err := s.msgRepo.Create(ctx, model.CreateMessageParams{
		ConversationID: conversationID,
		Text:           reply,
		Sender:         model.SenderAI,
	})
	if err != nil {
		return fmt.Errorf("store ai message: %w", err)
	}
	if err := s.convRepo.UpdateLastMessage(ctx, conversationID, reply); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if err := s.broker.Publish(ctx, s.ownerUserID, sse.Event{
		Type: sse.EventMessageCreated,
		Data: aiMsg.ToEventData(),
	}); err != nil {
		log.Warn().Err(err).Str("conversationId", conversationID).Msg("publish message_created")
	}

	if err := s.extractProfile(ctx, conversationID, messages, aiMsg); err != nil {
		// The reply already landed; extraction failures only skip this pass.
		log.Error().Err(err).Str("conversationId", conversationID).Msg("lead extraction failed")
	}

	return nil
}

func (s *ResponderService) extractProfile(ctx context.Context, conversationID string, priorMessages []model.Message, aiMsg *model.Message) error {
	var transcript strings.Builder
	for _, m := range priorMessages {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Sender, m.Text)
	}
	fmt.Fprintf(&transcript, "%s: %s\n", aiMsg.Sender, aiMsg.Text)

	extraction, err := s.generator.ExtractLead(ctx, transcript.String())
	if err != nil {
		return fmt.Errorf("extract lead: %w", err)
	}

	profile := &model.LeadProfile{
		ConversationID:   conversationID,
		Name:             extraction.Name,
		Region:           extraction.Region,
		PropertyType:     extraction.PropertyType,
		Bedrooms:         extraction.Bedrooms,
		BudgetRange:      extraction.BudgetRange,
		PaymentType:      extraction.PaymentType,
		IncomeEstimate:   extraction.IncomeEstimate,
		DownPayment:      extraction.DownPayment,
		PurchaseTimeline: extraction.PurchaseTimeline,
		MissingFields:    pq.StringArray(extraction.MissingFields),
	}
	stored, err := s.profileRepo.Replace(ctx, profile)
	if err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}

	if err := s.advanceLead(ctx, conversationID, stored); err != nil {
		log.Warn().Err(err).Str("conversationId", conversationID).Msg("advance lead")
	}

	if err := s.broker.PublishJSON(ctx, s.ownerUserID, sse.EventProfileUpdated, stored); err != nil {
		log.Warn().Err(err).Str("conversationId", conversationID).Msg("publish profile_updated")
	}

	return nil
}

// advanceLead moves a lead forward as qualification data accumulates. Only
// the automatic stages move here; Em atendimento and Finalizado are operator
// decisions and never set automatically. Temperature only ever warms up.
func (s *ResponderService) advanceLead(ctx context.Context, conversationID string, profile *model.LeadProfile) error {
	conv, err := s.convRepo.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return nil
	}

	var next model.LeadStatus
	switch {
	case profile.Complete() && (conv.LeadStatus == model.LeadStatusNovo || conv.LeadStatus == model.LeadStatusQualificando):
		next = model.LeadStatusQualificado
	case conv.LeadStatus == model.LeadStatusNovo:
		next = model.LeadStatusQualificando
	}
	if next != "" {
		if err := s.convRepo.UpdateLeadStatus(ctx, conversationID, next); err != nil {
			return err
		}
	}

	if temp := temperatureFor(profile); temperatureRank(temp) > temperatureRank(conv.LeadTemperature) {
		return s.convRepo.UpdateLeadTemperature(ctx, conversationID, temp)
	}
	return nil
}

// temperatureFor grades a lead by how much of the profile the extraction
// filled in: a complete profile is hot, budget or timeline answers make it
// warm, anything less stays cold.
func temperatureFor(profile *model.LeadProfile) model.LeadTemperature {
	switch {
	case profile.Complete():
		return model.TemperatureQuente
	case profile.BudgetRange != "" || profile.PurchaseTimeline != "":
		return model.TemperatureMorno
	default:
		return model.TemperatureFrio
	}
}

func temperatureRank(temp model.LeadTemperature) int {
	switch temp {
	case model.TemperatureQuente:
		return 2
	case model.TemperatureMorno:
		return 1
	default:
		return 0
	}
}

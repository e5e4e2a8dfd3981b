package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/imobiai/leadqual-server-go/internal/database"
	"github.com/imobiai/leadqual-server-go/internal/genai"
	"github.com/imobiai/leadqual-server-go/internal/model"
	"github.com/imobiai/leadqual-server-go/internal/repository"
	"github.com/imobiai/leadqual-server-go/internal/sse"
)

// fakeTxRunner invokes the callback without a real transaction so repo
// mocks observe the same calls they would see against the database.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// Mock session record repository
type mockSessionRecordRepo struct {
	mock.Mock
}

func (m *mockSessionRecordRepo) FindByID(ctx context.Context, id string) (*model.SessionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionRecord), args.Error(1)
}

func (m *mockSessionRecordRepo) FindActiveByOwner(ctx context.Context, ownerUserID string) ([]model.SessionRecord, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionRecord), args.Error(1)
}

func (m *mockSessionRecordRepo) Create(ctx context.Context, params model.CreateSessionRecordParams) (*model.SessionRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionRecord), args.Error(1)
}

func (m *mockSessionRecordRepo) MarkPaired(ctx context.Context, id string, pairedAt time.Time) error {
	args := m.Called(ctx, id, pairedAt)
	return args.Error(0)
}

func (m *mockSessionRecordRepo) MarkExpired(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSessionRecordRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Mock connection repository
type mockConnectionRepo struct {
	mock.Mock
}

func (m *mockConnectionRepo) FindByID(ctx context.Context, id string) (*model.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *mockConnectionRepo) FindByOwner(ctx context.Context, ownerUserID string) ([]model.Connection, error) {
	args := m.Called(ctx, ownerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Connection), args.Error(1)
}

func (m *mockConnectionRepo) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	args := m.Called(ctx, ownerUserID)
	return args.Int(0), args.Error(1)
}

func (m *mockConnectionRepo) Create(ctx context.Context, params model.CreateConnectionParams) (*model.Connection, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Connection), args.Error(1)
}

func (m *mockConnectionRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock conversation repository
type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) WithTx(tx *sqlx.Tx) repository.ConversationRepository {
	return m
}

func (m *mockConversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) List(ctx context.Context) ([]model.Conversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) Create(ctx context.Context, params model.CreateConversationParams) (*model.Conversation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *mockConversationRepo) UpdateLastMessage(ctx context.Context, id string, lastMessage string) error {
	args := m.Called(ctx, id, lastMessage)
	return args.Error(0)
}

func (m *mockConversationRepo) UpdateLeadStatus(ctx context.Context, id string, status model.LeadStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockConversationRepo) UpdateLeadTemperature(ctx context.Context, id string, temperature model.LeadTemperature) error {
	args := m.Called(ctx, id, temperature)
	return args.Error(0)
}

func (m *mockConversationRepo) ResetUnread(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockConversationRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockConversationRepo) CountByStatus(ctx context.Context, status model.LeadStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *mockConversationRepo) CountByTemperature(ctx context.Context, temperature model.LeadTemperature) (int, error) {
	args := m.Called(ctx, temperature)
	return args.Int(0), args.Error(1)
}

func (m *mockConversationRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)
	return args.Int(0), args.Error(1)
}

func (m *mockConversationRepo) CountByStatusSince(ctx context.Context, status model.LeadStatus, since time.Time) (int, error) {
	args := m.Called(ctx, status, since)
	return args.Int(0), args.Error(1)
}

// Mock message repository
type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) WithTx(tx *sqlx.Tx) repository.MessageRepository {
	return m
}

func (m *mockMessageRepo) FindByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *mockMessageRepo) FindLastByConversation(ctx context.Context, conversationID string) (*model.Message, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockMessageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *mockMessageRepo) CountBySender(ctx context.Context, sender model.MessageSender) (int, error) {
	args := m.Called(ctx, sender)
	return args.Int(0), args.Error(1)
}

// Mock lead profile repository
type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) WithTx(tx *sqlx.Tx) repository.LeadProfileRepository {
	return m
}

func (m *mockProfileRepo) FindByConversation(ctx context.Context, conversationID string) (*model.LeadProfile, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LeadProfile), args.Error(1)
}

func (m *mockProfileRepo) Replace(ctx context.Context, profile *model.LeadProfile) (*model.LeadProfile, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LeadProfile), args.Error(1)
}

// Mock auth session repository
type mockAuthSessionRepo struct {
	mock.Mock
}

func (m *mockAuthSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AuthSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthSession), args.Error(1)
}

func (m *mockAuthSessionRepo) Create(ctx context.Context, params model.CreateAuthSessionParams) (*model.AuthSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthSession), args.Error(1)
}

func (m *mockAuthSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockAuthSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Mock generator
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateReply(ctx context.Context, history []genai.ChatTurn, systemInstruction string) (string, error) {
	args := m.Called(ctx, history, systemInstruction)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) ExtractLead(ctx context.Context, transcript string) (*genai.LeadExtraction, error) {
	args := m.Called(ctx, transcript)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.LeadExtraction), args.Error(1)
}

func (m *mockGenerator) GenerateInsights(ctx context.Context, metricsText string) (*genai.InsightsResult, error) {
	args := m.Called(ctx, metricsText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.InsightsResult), args.Error(1)
}

// capturePublisher records every published event in order.
type capturePublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) PublishJSON(ctx context.Context, ownerUserID, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ownerUserID, sse.Event{Type: eventType, Data: raw})
}

func (p *capturePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

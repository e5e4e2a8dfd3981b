package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/imobiai/leadqual-server-go/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event types published by this system.
const (
	EventConversationCreated = "conversation_created"
	EventMessageCreated      = "message_created"
	EventProfileUpdated      = "profile_updated"
	EventSessionQR           = "session_qr"
	EventSessionPaired       = "session_paired"
	EventSessionExpired      = "session_expired"
	EventSessionFailed       = "session_failed"
	EventConnectionCreated   = "connection_created"
	EventConnectionDeleted   = "connection_deleted"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Publisher is the write side of the broker, the only part services need.
type Publisher interface {
	Publish(ctx context.Context, ownerUserID string, event Event) error
	PublishJSON(ctx context.Context, ownerUserID, eventType string, data any) error
}

var _ Publisher = (*Broker)(nil)

type Client struct {
	OwnerUserID string
	Events      chan Event
	Done        chan struct{}
}

// Broker fans live events out to connected SSE clients. Events are routed
// through redis pubsub so every server instance sees every publish.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // ownerUserID -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(ownerUserID string) *Client {
	client := &Client{
		OwnerUserID: ownerUserID,
		Events:      make(chan Event, 100),
		Done:        make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[ownerUserID] == nil {
		b.clients[ownerUserID] = make(map[*Client]bool)
		go b.subscribeToRedis(ownerUserID)
	}
	b.clients[ownerUserID][client] = true
	clientCount := len(b.clients[ownerUserID])
	b.mu.Unlock()

	log.Info().
		Str("ownerUserId", ownerUserID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.OwnerUserID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.OwnerUserID)
		}

		log.Info().
			Str("ownerUserId", client.OwnerUserID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, ownerUserID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.EventChannel(ownerUserID)
	return b.redis.Publish(ctx, channel, data).Err()
}

// PublishJSON marshals data and publishes it under the given event type.
func (b *Broker) PublishJSON(ctx context.Context, ownerUserID, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return b.Publish(ctx, ownerUserID, Event{Type: eventType, Data: raw})
}

func (b *Broker) subscribeToRedis(ownerUserID string) {
	channel := redisclient.EventChannel(ownerUserID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("ownerUserId", ownerUserID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(ownerUserID, event)
		}
	}
}

func (b *Broker) broadcast(ownerUserID string, event Event) {
	b.mu.RLock()
	clients := b.clients[ownerUserID]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("ownerUserId", ownerUserID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(ownerUserID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[ownerUserID])
}

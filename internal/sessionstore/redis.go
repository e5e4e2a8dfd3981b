package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/imobiai/leadqual-server-go/internal/model"
	redisclient "github.com/imobiai/leadqual-server-go/internal/redis"
)

// Sessions outlive their expiresAt in the store so that a late
// simulate-pair call still finds the record instead of a 404.
const retentionPastExpiry = 10 * time.Minute

type RedisStore struct {
	client *redisclient.Client
}

func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.PairingSession, error) {
	data, err := s.client.Get(ctx, redisclient.SessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session model.PairingSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Put(ctx context.Context, session *model.PairingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt) + retentionPastExpiry
	if ttl <= 0 {
		ttl = retentionPastExpiry
	}

	if err := s.client.Set(ctx, redisclient.SessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisclient.SessionKey(id)).Err()
}

package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// EventChannel is the pubsub channel carrying live events for one owner.
func EventChannel(ownerUserID string) string {
	return fmt.Sprintf("events:%s", ownerUserID)
}

// SessionKey is the key under which a pairing session is stored.
func SessionKey(sessionID string) string {
	return fmt.Sprintf("pairing-session:%s", sessionID)
}

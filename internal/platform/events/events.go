// Package events publishes appointment changes so open consoles can refresh
// without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "scheduling.appointments"

// Envelope is the JSON message written to the channel.
type Envelope struct {
	Type        string          `json:"type"`
	Appointment json.RawMessage `json:"appointment"`
	At          time.Time       `json:"at"`
}

// RedisPublisher publishes envelopes on a Redis pub/sub channel.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	now     func() time.Time
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, now: time.Now}
}

func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	msg, err := json.Marshal(Envelope{Type: eventType, Appointment: body, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel updates travel on.
const DefaultChannel = "worldmapquiz:updates"

// RedisRelay fans updates out to every server instance through Redis
// pub/sub. Local subscribers are served directly; updates from other
// instances are delivered to the local Broker by Run.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Broker
	origin  string
	logger  *slog.Logger
}

type envelope struct {
	Origin string `json:"origin"`
	Update Update `json:"update"`
}

func NewRedisRelay(client *redis.Client, local *Broker, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: DefaultChannel,
		local:   local,
		origin:  uuid.NewString(),
		logger:  logger,
	}
}

// Publish delivers u locally and forwards it to the other instances.
func (r *RedisRelay) Publish(ctx context.Context, u Update) {
	r.local.Publish(ctx, u)

	data, err := json.Marshal(envelope{Origin: r.origin, Update: u})
	if err != nil {
		r.logger.Error("encoding update", "session_id", u.Session.ID, "error", err)
		return
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("relaying update", "session_id", u.Session.ID, "error", err)
	}
}

// Run forwards updates published by other instances until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", "channel", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("dropping malformed relay message", "error", err)
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.Publish(ctx, env.Update)
}

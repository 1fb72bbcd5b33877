package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/expense-batchpay/internal/application/port"
)

// DefaultRedisChannel is the pub/sub channel shared by all instances
const DefaultRedisChannel = "batchpay:realtime"

// RedisBus publishes RealtimeMessages to Redis and relays what it receives
// into the local Hub, so every instance's SSE clients see every message.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisBus creates a bus on channel; empty channel uses DefaultRedisChannel
func NewRedisBus(client *redis.Client, channel string, logger *zap.Logger) *RedisBus {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisBus{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Publish implements port.EventPublisher
func (b *RedisBus) Publish(ctx context.Context, msg port.RealtimeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal realtime message: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish realtime message",
			zap.String("event", msg.Event),
			zap.String("channel", msg.Channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish realtime message: %w", err)
	}
	return nil
}

// Relay subscribes to the bus and hands every message to target until ctx
// is done. Malformed payloads are logged and skipped.
func (b *RedisBus) Relay(ctx context.Context, target port.EventPublisher) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	b.logger.Info("Subscribed to realtime channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Realtime relay stopped", zap.Error(ctx.Err()))
			return ctx.Err()

		case m, ok := <-ch:
			if !ok {
				b.logger.Warn("Realtime channel closed")
				return nil
			}

			var msg port.RealtimeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.logger.Error("Failed to unmarshal realtime message", zap.Error(err))
				continue
			}
			if err := target.Publish(ctx, msg); err != nil {
				b.logger.Error("Failed to relay realtime message",
					zap.String("event", msg.Event),
					zap.Error(err))
			}
		}
	}
}

// Ping checks connectivity to Redis
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Verify interface compliance
var _ port.EventPublisher = (*RedisBus)(nil)

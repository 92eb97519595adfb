package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "notifications:"

var _ Subscriber = (*RedisSubscriber)(nil)

// RedisSubscriber consumes notification change events published on a per-user
// Redis pub/sub channel by the platform's write side.
type RedisSubscriber struct {
	client *goredis.Client
	logger *zap.Logger
}

func NewRedisSubscriber(client *goredis.Client, logger *zap.Logger) (*RedisSubscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisSubscriber{client: client, logger: logger}, nil
}

func ChannelForRecipient(recipientID string) string {
	return redisChannelPrefix + strings.TrimSpace(recipientID)
}

func (s *RedisSubscriber) Subscribe(ctx context.Context, recipientID string, handler Handler) error {
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("recipient id is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	sub := s.client.Subscribe(ctx, ChannelForRecipient(recipientID))
	defer sub.Close()

	// Surface subscription setup errors before entering the receive loop.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe failed: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription channel closed")
			}
			handler(ctx, s.parseEvent(recipientID, msg.Payload))
		}
	}
}

// parseEvent decodes a published payload. Anything unreadable still yields a
// valid "something changed" event for the subscribed recipient.
func (s *RedisSubscriber) parseEvent(recipientID string, payload string) Event {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Kind == "" {
		s.logger.Debug("unreadable feed payload, treating as generic change",
			zap.String("recipientId", recipientID),
		)
		return Event{Kind: KindUpdate, RecipientID: recipientID}
	}

	if ev.RecipientID == "" {
		ev.RecipientID = recipientID
	}
	return ev
}

func (s *RedisSubscriber) Close() error {
	return nil
}

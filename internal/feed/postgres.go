package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	// NotifyChannel is the LISTEN/NOTIFY channel the notifications table
	// trigger publishes on.
	NotifyChannel = "notification_changes"

	minReconnectInterval = time.Second
	maxReconnectInterval = 30 * time.Second
	listenerPingInterval = 90 * time.Second
)

var _ Subscriber = (*PostgresSubscriber)(nil)

// PostgresSubscriber consumes the store's own change feed: a trigger on the
// notifications table emits pg_notify events that carry the change kind and
// the owning recipient, nothing more.
type PostgresSubscriber struct {
	dsn    string
	logger *zap.Logger
}

func NewPostgresSubscriber(dsn string, logger *zap.Logger) (*PostgresSubscriber, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PostgresSubscriber{dsn: dsn, logger: logger}, nil
}

func (s *PostgresSubscriber) Subscribe(ctx context.Context, recipientID string, handler Handler) error {
	if strings.TrimSpace(recipientID) == "" {
		return fmt.Errorf("recipient id is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}

	listener := pq.NewListener(s.dsn, minReconnectInterval, maxReconnectInterval, func(event pq.ListenerEventType, err error) {
		if err != nil {
			s.logger.Warn("postgres listener event", zap.Int("event", int(event)), zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(NotifyChannel); err != nil {
		return fmt.Errorf("postgres listen failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-listener.Notify:
			if !ok {
				return fmt.Errorf("postgres notification channel closed")
			}
			// A nil notification marks a reconnect; events may have been
			// missed, so treat it as a change signal.
			if n == nil {
				handler(ctx, Event{Kind: KindUpdate, RecipientID: recipientID})
				continue
			}
			ev, match := s.parseEvent(recipientID, n.Extra)
			if match {
				handler(ctx, ev)
			}
		case <-time.After(listenerPingInterval):
			if err := listener.Ping(); err != nil {
				return fmt.Errorf("postgres listener ping failed: %w", err)
			}
		}
	}
}

// parseEvent decodes a trigger payload and reports whether it targets the
// subscribed recipient. Unreadable payloads match everyone: a spurious
// refresh is cheaper than a missed change.
func (s *PostgresSubscriber) parseEvent(recipientID string, payload string) (Event, bool) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil || ev.Kind == "" {
		s.logger.Debug("unreadable trigger payload, treating as generic change",
			zap.String("recipientId", recipientID),
		)
		return Event{Kind: KindUpdate, RecipientID: recipientID}, true
	}

	if ev.RecipientID != "" && ev.RecipientID != recipientID {
		return Event{}, false
	}
	ev.RecipientID = recipientID
	return ev, true
}

func (s *PostgresSubscriber) Close() error {
	return nil
}

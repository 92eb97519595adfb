package inbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/event"
	"github.com/NEXESMISSION/fulldevland/internal/feed"
	"github.com/NEXESMISSION/fulldevland/internal/observability"
	"github.com/NEXESMISSION/fulldevland/internal/repository"
	"go.uber.org/zap"
)

// Hub owns one running Inbox per signed-in user. Sessions are reference
// counted: the first session starts the inbox, the last one to leave tears it
// down, cancelling its subscription, poll ticker, and in-flight retries.
type Hub struct {
	notifications repository.NotificationRepository
	conversations repository.ConversationRepository
	subscriber    feed.Subscriber
	bus           *event.Bus
	navigator     Navigator
	logger        *zap.Logger
	metrics       *observability.Metrics
	windowLimit   int
	pollInterval  time.Duration

	mu      sync.Mutex
	entries map[string]*hubEntry
	closed  bool
}

type hubEntry struct {
	inbox  *Inbox
	cancel context.CancelFunc
	done   chan struct{}
	refs   int
}

func NewHub(
	notifications repository.NotificationRepository,
	conversations repository.ConversationRepository,
	subscriber feed.Subscriber,
	bus *event.Bus,
	navigator Navigator,
	windowLimit int,
	pollInterval time.Duration,
	logger *zap.Logger,
) (*Hub, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if conversations == nil {
		return nil, fmt.Errorf("conversation repository is required")
	}
	if subscriber == nil {
		return nil, fmt.Errorf("feed subscriber is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		notifications: notifications,
		conversations: conversations,
		subscriber:    subscriber,
		bus:           bus,
		navigator:     navigator,
		logger:        logger,
		windowLimit:   windowLimit,
		pollInterval:  pollInterval,
		entries:       make(map[string]*hubEntry),
	}, nil
}

func (h *Hub) SetMetrics(metrics *observability.Metrics) {
	if h == nil {
		return
	}
	h.metrics = metrics
}

// Acquire returns the user's running inbox, starting one when this is the
// user's first active session.
func (h *Hub) Acquire(userID string) (*Inbox, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("inbox hub is closed")
	}

	if entry, ok := h.entries[userID]; ok {
		entry.refs++
		return entry.inbox, nil
	}

	ib, err := New(
		userID,
		h.notifications,
		h.conversations,
		h.subscriber,
		h.bus,
		h.navigator,
		h.windowLimit,
		h.pollInterval,
		h.logger,
	)
	if err != nil {
		return nil, err
	}
	ib.SetMetrics(h.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	entry := &hubEntry{inbox: ib, cancel: cancel, done: make(chan struct{}), refs: 1}
	h.entries[userID] = entry
	h.metrics.IncActiveInboxes()

	go func() {
		defer close(entry.done)
		if err := ib.Start(ctx); err != nil {
			h.logger.Error("inbox stopped with error",
				zap.String("userId", userID),
				zap.Error(err),
			)
		}
	}()

	return ib, nil
}

// Lookup returns the user's inbox when one is running.
func (h *Hub) Lookup(userID string) (*Inbox, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.entries[userID]
	if !ok {
		return nil, false
	}
	return entry.inbox, true
}

// Release drops one session reference. When the last session for a user
// ends, the inbox is cancelled and Release blocks until its loops have
// stopped, guaranteeing no callback fires against torn-down state.
func (h *Hub) Release(userID string) {
	h.mu.Lock()
	entry, ok := h.entries[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		h.mu.Unlock()
		return
	}
	delete(h.entries, userID)
	h.mu.Unlock()

	entry.cancel()
	<-entry.done
	entry.inbox.Close()
	h.metrics.DecActiveInboxes()
}

// Close tears down every running inbox and rejects further Acquires.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	entries := make([]*hubEntry, 0, len(h.entries))
	for userID, entry := range h.entries {
		delete(h.entries, userID)
		entries = append(entries, entry)
	}
	h.mu.Unlock()

	for _, entry := range entries {
		entry.cancel()
		<-entry.done
		entry.inbox.Close()
		h.metrics.DecActiveInboxes()
	}
}

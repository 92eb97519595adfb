// Package inbox implements the per-session notification inbox: one instance
// per signed-in user, kept consistent with the backing store by a live change
// feed plus a polling fallback, serving grouped snapshots to the UI.
package inbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
	"github.com/NEXESMISSION/fulldevland/internal/event"
	"github.com/NEXESMISSION/fulldevland/internal/feed"
	"github.com/NEXESMISSION/fulldevland/internal/observability"
	"github.com/NEXESMISSION/fulldevland/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWindowLimit  = 100
	defaultPollInterval = 30 * time.Second
	maxFetchFailures    = 3
	baseRetryDelay      = time.Second
	resubscribeDelay    = 5 * time.Second
)

// Navigator receives navigation intents produced when a user opens a message
// group. Implementations forward them to the client session.
type Navigator interface {
	OpenConversation(recipientID string, conversationID string)
}

// Inbox holds one user's notification window and everything derived from it.
// All derived state is recomputed wholesale from the window; nothing is
// patched incrementally, so a refresh can never leave stale aggregates behind.
type Inbox struct {
	recipientID   string
	notifications repository.NotificationRepository
	conversations repository.ConversationRepository
	subscriber    feed.Subscriber
	bus           *event.Bus
	navigator     Navigator
	logger        *zap.Logger
	metrics       *observability.Metrics
	windowLimit   int
	pollInterval  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu            sync.Mutex
	window        []domain.Notification
	groups        []domain.GroupedNotification
	names         map[string]string
	unreadCount   int
	fetchFailures int
	refreshedAt   time.Time
	closed        bool
}

func New(
	recipientID string,
	notifications repository.NotificationRepository,
	conversations repository.ConversationRepository,
	subscriber feed.Subscriber,
	bus *event.Bus,
	navigator Navigator,
	windowLimit int,
	pollInterval time.Duration,
	logger *zap.Logger,
) (*Inbox, error) {
	if strings.TrimSpace(recipientID) == "" {
		return nil, fmt.Errorf("recipient id is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if conversations == nil {
		return nil, fmt.Errorf("conversation repository is required")
	}
	if subscriber == nil {
		return nil, fmt.Errorf("feed subscriber is required")
	}
	if windowLimit <= 0 {
		windowLimit = defaultWindowLimit
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Inbox{
		recipientID:   recipientID,
		notifications: notifications,
		conversations: conversations,
		subscriber:    subscriber,
		bus:           bus,
		navigator:     navigator,
		logger:        logger.With(zap.String("recipientId", recipientID)),
		windowLimit:   windowLimit,
		pollInterval:  pollInterval,
		now:           time.Now,
		sleep:         sleepWithContext,
	}, nil
}

func (b *Inbox) SetMetrics(metrics *observability.Metrics) {
	if b == nil {
		return
	}
	b.metrics = metrics
}

// Start performs the initial refresh, then runs the change-feed loop and the
// polling fallback until ctx is cancelled. On return all local state has been
// discarded and late callbacks are no-ops.
func (b *Inbox) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b.Refresh(ctx)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.runFeed(groupCtx)
	})
	g.Go(func() error {
		return b.runPoll(groupCtx)
	})

	err := g.Wait()
	b.Close()
	return err
}

// runFeed keeps one live subscription against the store's change feed. Every
// delivered event triggers a full refresh; the payload is never applied
// directly. Subscription failures are absorbed: the loop re-subscribes after
// a short delay and polling bounds staleness in the meantime.
func (b *Inbox) runFeed(ctx context.Context) error {
	for {
		err := b.subscriber.Subscribe(ctx, b.recipientID, func(ctx context.Context, ev feed.Event) {
			b.metrics.IncFeedEvent(string(ev.Kind))
			b.Refresh(ctx)
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			b.logger.Warn("change feed subscription lost, polling covers the gap", zap.Error(err))
		}
		if serr := b.sleep(ctx, resubscribeDelay); serr != nil {
			return nil
		}
	}
}

func (b *Inbox) runPoll(ctx context.Context) error {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Refresh(ctx)
		}
	}
}

// Close tears the inbox down. Local state is discarded and any late timer or
// subscription callback becomes a no-op. Safe to call more than once.
func (b *Inbox) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.window = nil
	b.groups = nil
	b.names = nil
	b.unreadCount = 0
	b.fetchFailures = 0
}

// Snapshot is the presentation-ready view of the inbox at one point in time.
type Snapshot struct {
	Groups      []domain.GroupedNotification `json:"groups"`
	UnreadCount int                          `json:"unreadCount"`
	RefreshedAt time.Time                    `json:"refreshedAt"`
}

// UnresolvedNameLabel is shown for message groups whose counterpart lookup
// has not completed or failed.
const UnresolvedNameLabel = "Unknown"

// Snapshot copies the current grouped state, stamping message groups with
// resolved counterpart names or the fallback label.
func (b *Inbox) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups := make([]domain.GroupedNotification, len(b.groups))
	copy(groups, b.groups)
	for i := range groups {
		if groups[i].Latest == nil || !groups[i].Latest.Groupable() {
			continue
		}
		if name, ok := b.names[groups[i].Key]; ok && name != "" {
			groups[i].DisplayName = name
		} else {
			groups[i].DisplayName = UnresolvedNameLabel
		}
	}

	return Snapshot{
		Groups:      groups,
		UnreadCount: b.unreadCount,
		RefreshedAt: b.refreshedAt,
	}
}

// UnreadCount returns the current badge value: distinct conversations with an
// unread message, not raw unread rows.
func (b *Inbox) UnreadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unreadCount
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package inbox

import (
	"context"
	"errors"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
	"github.com/NEXESMISSION/fulldevland/internal/event"
	"go.uber.org/zap"
)

// Refresh pulls the authoritative notification window and replaces local
// state wholesale. It is idempotent and safe to call concurrently with
// itself: every call applies a complete snapshot, so a later-completing call
// simply wins and no invariant depends on completion order.
func (b *Inbox) Refresh(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	window, err := b.notifications.ListRecentByRecipient(ctx, b.recipientID, b.windowLimit)
	if err != nil {
		b.handleFetchFailure(ctx, err)
		return
	}

	if !b.applyWindow(window) {
		return
	}

	go b.resolveNames(ctx, window)
}

// applyWindow swaps in a fresh window and recomputes everything derived from
// it. Returns false when the inbox was torn down before the result arrived.
func (b *Inbox) applyWindow(window []domain.Notification) bool {
	groups := domain.GroupNotifications(window)
	unread := domain.CountUnreadConversations(window)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.window = window
	b.groups = groups
	b.unreadCount = unread
	b.fetchFailures = 0
	b.refreshedAt = b.now()
	alert := event.Alert{
		RecipientID: b.recipientID,
		UnreadCount: unread,
		RefreshedAt: b.refreshedAt,
	}
	b.mu.Unlock()

	b.metrics.IncRefresh("success")
	if b.bus != nil {
		b.bus.Publish(alert)
	}
	return true
}

// handleFetchFailure classifies a failed fetch. Auth failures abandon the
// cycle and keep the last known good window; stale data beats a blank screen
// while the session winds down. Anything else is retried with exponential
// backoff, and once retries are exhausted the window degrades to empty so
// the user is never shown indefinitely stale data.
func (b *Inbox) handleFetchFailure(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}

	if errors.Is(err, domain.ErrUnauthorized) {
		b.metrics.IncRefresh("auth_rejected")
		b.logger.Warn("inbox fetch rejected, keeping last known state", zap.Error(err))
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.fetchFailures++
	failures := b.fetchFailures
	if failures >= maxFetchFailures {
		b.window = nil
		b.groups = nil
		b.names = nil
		b.unreadCount = 0
		b.fetchFailures = 0
		b.refreshedAt = b.now()
		alert := event.Alert{RecipientID: b.recipientID, RefreshedAt: b.refreshedAt}
		b.mu.Unlock()

		b.metrics.IncRefresh("degraded")
		b.logger.Error("inbox fetch failed repeatedly, degrading to empty window",
			zap.Int("failures", failures),
			zap.Error(err),
		)
		if b.bus != nil {
			b.bus.Publish(alert)
		}
		return
	}
	b.mu.Unlock()

	delay := baseRetryDelay << (failures - 1)
	b.metrics.IncRefresh("retry_scheduled")
	b.logger.Warn("inbox fetch failed, scheduling retry",
		zap.Int("failure", failures),
		zap.Duration("delay", delay),
		zap.Error(err),
	)

	go func() {
		if serr := b.sleep(ctx, delay); serr != nil {
			return
		}
		b.Refresh(ctx)
	}()
}

// resolveNames fills the conversation display-name cache for a window: one
// batched lookup keyed by the distinct conversation ids present. A failed
// lookup leaves names unresolved and the snapshot falls back to a
// placeholder label until the next refresh tries again.
func (b *Inbox) resolveNames(ctx context.Context, window []domain.Notification) {
	ids := distinctConversationIDs(window)

	names := make(map[string]string, len(ids))
	if len(ids) > 0 {
		conversations, err := b.conversations.GetByIDs(ctx, ids)
		if err != nil {
			b.metrics.IncEnrichmentFailure()
			b.logger.Warn("conversation enrichment failed, names stay unresolved", zap.Error(err))
			return
		}
		for _, c := range conversations {
			names[c.ID] = c.Counterpart(b.recipientID)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.names = names
}

func distinctConversationIDs(window []domain.Notification) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0, len(window))
	for _, n := range window {
		if !n.Groupable() {
			continue
		}
		if _, ok := seen[n.Ref()]; ok {
			continue
		}
		seen[n.Ref()] = struct{}{}
		ids = append(ids, n.Ref())
	}
	return ids
}

package inbox

import (
	"context"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MarkOneRead flips a single notification's read flag locally, recomputes the
// derived state, and issues the remote mutation. A failed remote write is
// logged but the optimistic local flip stays; the store is authoritative and
// the next refresh reconciles any divergence.
func (b *Inbox) MarkOneRead(ctx context.Context, id string) {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	for i := range b.window {
		if b.window[i].ID == id {
			b.window[i].IsRead = true
			break
		}
	}
	b.recomputeLocked()
	b.mu.Unlock()

	if err := b.notifications.MarkRead(ctx, id); err != nil {
		b.metrics.IncReadMutation("one", "failed")
		b.logger.Warn("mark-read mutation failed, optimistic state kept",
			zap.String("notificationId", id),
			zap.Error(err),
		)
		return
	}
	b.metrics.IncReadMutation("one", "ok")
}

// MarkGroupRead marks every currently-unread member of a message group as
// read: a group activation means the user has seen the whole conversation,
// not just its latest item. Remote mutations run in parallel and failures are
// logged without rolling the local flips back.
func (b *Inbox) MarkGroupRead(ctx context.Context, conversationID string) {
	if ctx == nil {
		ctx = context.Background()
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var ids []string
	for i := range b.window {
		n := &b.window[i]
		if n.IsRead || !n.Groupable() || n.Ref() != conversationID {
			continue
		}
		n.IsRead = true
		ids = append(ids, n.ID)
	}
	if len(ids) > 0 {
		b.recomputeLocked()
	}
	b.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := b.notifications.MarkRead(groupCtx, id); err != nil {
				b.metrics.IncReadMutation("group", "failed")
				b.logger.Warn("group mark-read mutation failed, optimistic state kept",
					zap.String("notificationId", id),
					zap.String("conversationId", conversationID),
					zap.Error(err),
				)
				return nil
			}
			b.metrics.IncReadMutation("group", "ok")
			return nil
		})
	}
	_ = g.Wait()
}

// MarkAllRead issues one bulk remote mutation and applies the local flip to
// every entry regardless of the remote outcome. The unread count always ends
// at zero.
func (b *Inbox) MarkAllRead(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := b.notifications.MarkAllRead(ctx, b.recipientID); err != nil {
		b.metrics.IncReadMutation("all", "failed")
		b.logger.Warn("bulk mark-read mutation failed, applying local state anyway", zap.Error(err))
	} else {
		b.metrics.IncReadMutation("all", "ok")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for i := range b.window {
		b.window[i].IsRead = true
	}
	b.recomputeLocked()
}

// OpenGroup marks a message group read and emits a navigation intent carrying
// its conversation id. Navigation is not gated on the mutations completing;
// the store is authoritative on the next refresh.
func (b *Inbox) OpenGroup(ctx context.Context, conversationID string) {
	go b.MarkGroupRead(context.WithoutCancel(ctx), conversationID)

	if b.navigator != nil {
		b.navigator.OpenConversation(b.recipientID, conversationID)
	}
}

// recomputeLocked rebuilds all derived state from the current window. Callers
// must hold b.mu. Derived state is never patched in place: wholesale
// recomputation is what keeps the distinct-conversation badge honest when
// several rows in one conversation change at once.
func (b *Inbox) recomputeLocked() {
	b.groups = domain.GroupNotifications(b.window)
	b.unreadCount = domain.CountUnreadConversations(b.window)
}

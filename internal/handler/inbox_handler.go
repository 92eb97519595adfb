package handler

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NEXESMISSION/fulldevland/internal/domain"
	"github.com/NEXESMISSION/fulldevland/internal/event"
	"github.com/NEXESMISSION/fulldevland/internal/inbox"
	"github.com/NEXESMISSION/fulldevland/internal/ratelimit"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const streamHeartbeat = 30 * time.Second

type InboxHandler struct {
	hub     *inbox.Hub
	bus     *event.Bus
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

func NewInboxHandler(hub *inbox.Hub, bus *event.Bus, limiter ratelimit.Limiter, logger *zap.Logger) (*InboxHandler, error) {
	if hub == nil {
		return nil, fmt.Errorf("inbox hub is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxHandler{hub: hub, bus: bus, limiter: limiter, logger: logger}, nil
}

func RegisterInboxRoutes(router fiber.Router, hub *inbox.Hub, bus *event.Bus, limiter ratelimit.Limiter, logger *zap.Logger) error {
	h, err := NewInboxHandler(hub, bus, limiter, logger)
	if err != nil {
		return err
	}

	router.Get("/inbox/stream", h.Stream)
	router.Get("/inbox", h.GetInbox)
	router.Post("/inbox/refresh", h.RefreshInbox)
	router.Post("/inbox/notifications/:id/read", h.MarkNotificationRead)
	router.Post("/inbox/read-all", h.MarkAllRead)
	router.Post("/inbox/groups/:ref/open", h.OpenGroup)

	return nil
}

type groupResponse struct {
	Key         string    `json:"key"`
	Count       int       `json:"count"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	DisplayName string    `json:"displayName,omitempty"`
	Unread      bool      `json:"unread"`
	LatestID    string    `json:"latestId"`
	LatestAt    time.Time `json:"latestAt"`
}

type snapshotResponse struct {
	Groups      []groupResponse `json:"groups"`
	UnreadCount int             `json:"unreadCount"`
	RefreshedAt time.Time       `json:"refreshedAt"`
}

func toSnapshotResponse(snap inbox.Snapshot) snapshotResponse {
	groups := make([]groupResponse, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		item := groupResponse{
			Key:         g.Key,
			Count:       g.Count,
			DisplayName: g.DisplayName,
			Unread:      g.Unread,
		}
		if g.Latest != nil {
			item.Type = g.Latest.Type.String()
			item.Title = g.Latest.Title
			item.Message = g.Latest.Message
			item.LatestID = g.Latest.ID
			item.LatestAt = g.Latest.CreatedAt
		}
		groups = append(groups, item)
	}
	return snapshotResponse{
		Groups:      groups,
		UnreadCount: snap.UnreadCount,
		RefreshedAt: snap.RefreshedAt,
	}
}

// lookupInbox resolves the caller's running inbox. The SSE stream owns the
// session, so a missing inbox means no stream is open.
func (h *InboxHandler) lookupInbox(c *fiber.Ctx) (*inbox.Inbox, string, error) {
	userID := AuthenticatedUserID(c)
	if userID == "" {
		return nil, "", fiber.NewError(fiber.StatusUnauthorized, "authentication is required")
	}
	ib, ok := h.hub.Lookup(userID)
	if !ok {
		return nil, "", fiber.NewError(fiber.StatusConflict, "no active inbox session, open the stream first")
	}
	return ib, userID, nil
}

func (h *InboxHandler) allowMutation(c *fiber.Ctx, userID string) error {
	allowed, err := h.limiter.Allow(c.Context(), userID)
	if err != nil {
		h.logger.Warn("mutation limiter unavailable, allowing request", zap.Error(err))
		return nil
	}
	if !allowed {
		return fiber.NewError(fiber.StatusTooManyRequests, "too many read-state mutations")
	}
	return nil
}

func (h *InboxHandler) GetInbox(c *fiber.Ctx) error {
	ib, _, err := h.lookupInbox(c)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toSnapshotResponse(ib.Snapshot()))
}

func (h *InboxHandler) RefreshInbox(c *fiber.Ctx) error {
	ib, _, err := h.lookupInbox(c)
	if err != nil {
		return err
	}
	ib.Refresh(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(toSnapshotResponse(ib.Snapshot()))
}

func (h *InboxHandler) MarkNotificationRead(c *fiber.Ctx) error {
	ib, userID, err := h.lookupInbox(c)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return toHTTPError(fmt.Errorf("%w: notification id is required", domain.ErrValidation))
	}
	if err := h.allowMutation(c, userID); err != nil {
		return err
	}

	ib.MarkOneRead(c.UserContext(), id)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notificationId": id,
		"unreadCount":    ib.UnreadCount(),
	})
}

func (h *InboxHandler) MarkAllRead(c *fiber.Ctx) error {
	ib, userID, err := h.lookupInbox(c)
	if err != nil {
		return err
	}
	if err := h.allowMutation(c, userID); err != nil {
		return err
	}

	ib.MarkAllRead(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"unreadCount": ib.UnreadCount(),
	})
}

func (h *InboxHandler) OpenGroup(c *fiber.Ctx) error {
	ib, userID, err := h.lookupInbox(c)
	if err != nil {
		return err
	}
	conversationID := strings.TrimSpace(c.Params("ref"))
	if conversationID == "" {
		return toHTTPError(fmt.Errorf("%w: conversation id is required", domain.ErrValidation))
	}
	if err := h.allowMutation(c, userID); err != nil {
		return err
	}

	ib.OpenGroup(c.UserContext(), conversationID)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"conversationId": conversationID,
		"action":         "open_conversation",
	})
}

// Stream is the SSE session endpoint. The first open stream for a user
// starts their inbox; the last one to close tears it down. Alerts published
// after each reconcile are relayed as `alert` events, with periodic
// heartbeats so intermediaries keep the connection alive.
func (h *InboxHandler) Stream(c *fiber.Ctx) error {
	userID := AuthenticatedUserID(c)
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication is required")
	}

	ib, err := h.hub.Acquire(userID)
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	alerts := h.bus.Subscribe()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sessionID := uuid.NewString()
	logger := h.logger.With(
		zap.String("userId", userID),
		zap.String("sessionId", sessionID),
	)
	logger.Info("inbox stream opened")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer logger.Info("inbox stream closed")
		defer h.hub.Release(userID)
		defer h.bus.Unsubscribe(alerts)

		if err := writeAlertEvent(w, event.Alert{
			RecipientID: userID,
			UnreadCount: ib.UnreadCount(),
			RefreshedAt: ib.Snapshot().RefreshedAt,
		}); err != nil {
			return
		}

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case alert, ok := <-alerts:
				if !ok {
					return
				}
				if alert.RecipientID != userID {
					continue
				}
				if err := writeAlertEvent(w, alert); err != nil {
					logger.Debug("alert stream closed", zap.Error(err))
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	default:
		return err
	}
}

func writeAlertEvent(w *bufio.Writer, alert event.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: alert\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

package controllers

import (
	"errors"

	"github.com/shashiranjanraj/faultline/app/services"
	"github.com/shashiranjanraj/faultline/pkg/ctx"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/ws"
)

type SendNotificationRequest struct {
	UserID  string `json:"userId" validate:"required,max=64"`
	Title   string `json:"title" validate:"required,between=1,120"`
	Message string `json:"message" validate:"required,between=1,1000"`
	Type    string `json:"type" validate:"nullable,in=info,success,warning,error"`
	Channel string `json:"channel" validate:"nullable,in=in_app,email,push"`
}

// MarkReadRequest selects notifications by id, by ids, or all of them.
// userId is required so one user can never flip another's.
type MarkReadRequest struct {
	UserID string   `json:"userId" validate:"required,max=64"`
	ID     string   `json:"id"`
	IDs    []string `json:"ids" validate:"nullable,max=100"`
	All    bool     `json:"all"`
}

type markReadResult struct {
	Updated int      `json:"updated"`
	IDs     []string `json:"ids"`
}

type notificationMeta struct {
	Count       int `json:"count"`
	UnreadCount int `json:"unreadCount"`
}

type NotificationController struct {
	notifications *services.NotificationService
	hub           *ws.Hub
}

func NewNotificationController(notifications *services.NotificationService, hub *ws.Hub) *NotificationController {
	return &NotificationController{notifications: notifications, hub: hub}
}

func (nc *NotificationController) Index(c *ctx.Context) {
	userID, ok := required(c, "userId")
	if !ok {
		return
	}

	items, unread, err := nc.notifications.List(c.Context(), userID, c.QueryBool("unread"))
	if err != nil {
		fail(c, err, "Notification not found")
		return
	}
	c.SuccessWithMeta(items, notificationMeta{Count: len(items), UnreadCount: unread})
}

// Store creates a notification and waits for its delivery. A failed
// delivery is still a 201; the record says deliveryStatus "failed".
func (nc *NotificationController) Store(c *ctx.Context) {
	var in SendNotificationRequest
	if !c.BindJSON(&in) {
		return
	}

	n, err := nc.notifications.Send(c.Context(), services.NewNotification{
		UserID:  in.UserID,
		Title:   in.Title,
		Message: in.Message,
		Type:    in.Type,
		Channel: in.Channel,
	})
	if err != nil {
		fail(c, err, "Notification not found")
		return
	}
	c.Created(n)
}

func (nc *NotificationController) MarkRead(c *ctx.Context) {
	var in MarkReadRequest
	if !c.BindJSON(&in) {
		return
	}

	ids := in.IDs
	if in.ID != "" {
		ids = append(ids, in.ID)
	}
	if !in.All && len(ids) == 0 {
		c.ValidationError(map[string]string{"ids": "Provide id, ids or all."})
		return
	}

	updated, err := nc.notifications.MarkRead(c.Context(), in.UserID, ids, in.All)
	if err != nil {
		fail(c, err, "Notification not found")
		return
	}
	c.Success(markReadResult{Updated: len(updated), IDs: updated})
}

func (nc *NotificationController) Destroy(c *ctx.Context) {
	id, ok := required(c, "id")
	if !ok {
		return
	}
	userID, ok := required(c, "userId")
	if !ok {
		return
	}

	if err := nc.notifications.Delete(c.Context(), id, userID); err != nil {
		fail(c, err, "Notification not found")
		return
	}
	c.Success(map[string]any{"id": id, "deleted": true})
}

// Live upgrades to a WebSocket that receives the user's new in-app
// notifications as they are delivered.
func (nc *NotificationController) Live(c *ctx.Context) {
	userID, ok := required(c, "userId")
	if !ok {
		return
	}
	err := nc.hub.Serve(c.W, c.R, services.NotificationTopic(userID))
	if err != nil && !errors.Is(err, ws.ErrHubStopped) {
		logger.WithCtx(c.Context()).Warn("notification feed not opened", "user_id", userID, "error", err)
	}
}

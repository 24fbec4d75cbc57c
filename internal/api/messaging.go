package api

import (
	"net/http"

	"delivery-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type conversationRequest struct {
	ParticipantIDs []int64 `json:"participant_ids" binding:"required"`
	OrderID        *int64  `json:"order_id"`
}

type messageRequest struct {
	SenderID int64  `json:"sender_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

type readConversationRequest struct {
	ReaderID int64 `json:"reader_id" binding:"required"`
}

type ticketStatusRequest struct {
	Status     models.TicketStatus `json:"status" binding:"required"`
	AssigneeID *int64              `json:"assignee_id"`
}

func (h *Handler) messagingRoutes(v1 *gin.RouterGroup) {
	v1.POST("/conversations", h.createConversation)
	v1.POST("/conversations/:id/messages", h.sendMessage)
	v1.GET("/conversations/:id/messages", h.listMessages)
	v1.POST("/conversations/:id/read", h.markConversationRead)
	v1.GET("/users/:id/conversations", h.userConversations)

	v1.POST("/tickets", h.createTicket)
	v1.GET("/tickets/:id", h.getTicket)
	v1.POST("/tickets/:id/status", h.updateTicketStatus)

	v1.POST("/notifications", h.createNotification)
	v1.POST("/notifications/:id/read", h.markNotificationRead)
	v1.GET("/users/:id/notifications", h.listNotifications)
	v1.GET("/users/:id/notifications/unread-count", h.unreadCount)
	v1.POST("/users/:id/notifications/read-all", h.markAllNotificationsRead)
}

func (h *Handler) createConversation(c *gin.Context) {
	var req conversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.svc.Messaging.CreateConversation(c.Request.Context(), req.ParticipantIDs, req.OrderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) userConversations(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, h.svc.Messaging.ConversationsForUser(c.Request.Context(), id))
	}
}

func (h *Handler) sendMessage(c *gin.Context) {
	convID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req messageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.svc.Messaging.SendMessage(c.Request.Context(), convID, req.SenderID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) listMessages(c *gin.Context) {
	convID, ok := idParam(c, "id")
	if !ok {
		return
	}

	msgs, err := h.svc.Messaging.ListMessages(c.Request.Context(), convID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) markConversationRead(c *gin.Context) {
	convID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req readConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	n, err := h.svc.Messaging.MarkConversationRead(c.Request.Context(), convID, req.ReaderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *Handler) createTicket(c *gin.Context) {
	var req models.SupportTicket
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.svc.Messaging.CreateTicket(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) getTicket(c *gin.Context) {
	ticketID, ok := idParam(c, "id")
	if !ok {
		return
	}

	ticket, err := h.svc.Messaging.GetTicket(c.Request.Context(), ticketID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) updateTicketStatus(c *gin.Context) {
	ticketID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ticketStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ticket, err := h.svc.Messaging.UpdateTicketStatus(c.Request.Context(), ticketID, req.Status, req.AssigneeID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) createNotification(c *gin.Context) {
	var req models.Notification
	if !bindJSON(c, &req) {
		return
	}

	note, err := h.svc.Messaging.CreateNotification(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}

// listNotifications lists a user's notifications, ?unread=true for unread only
func (h *Handler) listNotifications(c *gin.Context) {
	userID, ok := idParam(c, "id")
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	c.JSON(http.StatusOK, h.svc.Messaging.ListNotifications(c.Request.Context(), userID, unreadOnly))
}

func (h *Handler) unreadCount(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, gin.H{"unread": h.svc.Messaging.UnreadCount(c.Request.Context(), id)})
	}
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	noteID, ok := idParam(c, "id")
	if !ok {
		return
	}

	note, err := h.svc.Messaging.MarkNotificationRead(c.Request.Context(), noteID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	if id, ok := idParam(c, "id"); ok {
		c.JSON(http.StatusOK, gin.H{"marked": h.svc.Messaging.MarkAllNotificationsRead(c.Request.Context(), id)})
	}
}

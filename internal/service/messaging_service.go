package service

import (
	"context"
	"errors"

	"delivery-ledger/internal/clock"
	"delivery-ledger/internal/models"
	"delivery-ledger/internal/store"
	"delivery-ledger/internal/util"

	"go.uber.org/zap"
)

// MessagingService owns conversations, chat messages, support tickets and
// notifications
type MessagingService struct {
	store  *store.Store
	clock  clock.Clock
	logger *zap.Logger
}

// NewMessagingService creates a new messaging service
func NewMessagingService(store *store.Store, clk clock.Clock) *MessagingService {
	return &MessagingService{
		store:  store,
		clock:  clk,
		logger: util.GetLogger(),
	}
}

// CreateConversation opens a thread between at least two participants
func (s *MessagingService) CreateConversation(ctx context.Context, participantIDs []int64, orderID *int64) (*models.Conversation, error) {
	seen := make(map[int64]bool, len(participantIDs))
	participants := make([]int64, 0, len(participantIDs))
	for _, id := range participantIDs {
		if !seen[id] {
			seen[id] = true
			participants = append(participants, id)
		}
	}
	if len(participants) < 2 {
		return nil, invalid("participant_ids", "need at least two distinct participants")
	}

	now := s.clock.Now()
	c := s.store.Conversations.Insert(func(id int64) models.Conversation {
		return models.Conversation{
			ID:             id,
			ParticipantIDs: participants,
			OrderID:        orderID,
			CreatedAt:      now,
		}
	})
	return &c, nil
}

// ConversationsForUser lists the conversations a user takes part in
func (s *MessagingService) ConversationsForUser(ctx context.Context, userID int64) []models.Conversation {
	return s.store.Conversations.List(func(c models.Conversation) bool {
		return isParticipant(c, userID)
	})
}

func isParticipant(c models.Conversation, userID int64) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SendMessage appends a message and refreshes the conversation's last
// message under the conversation lock.
func (s *MessagingService) SendMessage(ctx context.Context, conversationID, senderID int64, content string) (*models.ChatMessage, error) {
	if content == "" {
		return nil, invalid("content", "required")
	}

	unlock := s.store.Conversations.Lock(conversationID)
	defer unlock()

	c, ok := s.store.Conversations.Get(conversationID)
	if !ok {
		return nil, notFound("conversation", conversationID)
	}
	if !isParticipant(c, senderID) {
		return nil, invalid("sender_id", "not a participant of the conversation")
	}

	now := s.clock.Now()
	msg := s.store.Messages.Insert(func(id int64) models.ChatMessage {
		return models.ChatMessage{
			ID:             id,
			ConversationID: conversationID,
			SenderID:       senderID,
			Content:        content,
			CreatedAt:      now,
		}
	})

	if _, err := s.store.Conversations.UpdateLocked(conversationID, func(c *models.Conversation) error {
		c.LastMessage = msg.Content
		at := msg.CreatedAt
		c.LastMessageTime = &at
		return nil
	}); err != nil {
		return nil, err
	}

	return &msg, nil
}

// ListMessages lists the messages of a conversation, oldest first
func (s *MessagingService) ListMessages(ctx context.Context, conversationID int64) ([]models.ChatMessage, error) {
	if _, ok := s.store.Conversations.Get(conversationID); !ok {
		return nil, notFound("conversation", conversationID)
	}
	return s.store.Messages.List(func(m models.ChatMessage) bool {
		return m.ConversationID == conversationID
	}), nil
}

// MarkConversationRead flags as read every message of the conversation not
// sent by readerID. It returns how many messages changed.
func (s *MessagingService) MarkConversationRead(ctx context.Context, conversationID, readerID int64) (int, error) {
	msgs, err := s.ListMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, m := range msgs {
		if m.Read || m.SenderID == readerID {
			continue
		}
		if _, err := s.store.Messages.Update(m.ID, func(m *models.ChatMessage) error {
			m.Read = true
			return nil
		}); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// CreateTicket opens a support ticket
func (s *MessagingService) CreateTicket(ctx context.Context, input models.SupportTicket) (*models.SupportTicket, error) {
	if input.Subject == "" {
		return nil, invalid("subject", "required")
	}
	if input.Priority == "" {
		input.Priority = "medium"
	}

	now := s.clock.Now()
	t := s.store.Tickets.Insert(func(id int64) models.SupportTicket {
		return models.SupportTicket{
			ID:          id,
			UserID:      input.UserID,
			OrderID:     input.OrderID,
			Subject:     input.Subject,
			Description: input.Description,
			Priority:    input.Priority,
			Status:      models.TicketOpen,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	})

	s.logger.Info("Support ticket opened",
		zap.Int64("ticket_id", t.ID),
		zap.Int64("user_id", t.UserID),
		zap.String("priority", t.Priority))
	return &t, nil
}

// GetTicket retrieves a ticket by ID
func (s *MessagingService) GetTicket(ctx context.Context, ticketID int64) (*models.SupportTicket, error) {
	t, ok := s.store.Tickets.Get(ticketID)
	if !ok {
		return nil, notFound("ticket", ticketID)
	}
	return &t, nil
}

// UpdateTicketStatus moves a ticket; resolvedAt is stamped on first
// resolution. A nil assigneeID keeps the current assignee.
func (s *MessagingService) UpdateTicketStatus(ctx context.Context, ticketID int64, status models.TicketStatus, assigneeID *int64) (*models.SupportTicket, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown ticket status "+string(status))
	}

	now := s.clock.Now()
	t, err := s.store.Tickets.Update(ticketID, func(t *models.SupportTicket) error {
		t.Status = status
		t.UpdatedAt = now
		if assigneeID != nil {
			a := *assigneeID
			t.AssigneeID = &a
		}
		if status == models.TicketResolved && t.ResolvedAt == nil {
			resolved := now
			t.ResolvedAt = &resolved
		}
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("ticket", ticketID)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateNotification stores an unread notification for a user
func (s *MessagingService) CreateNotification(ctx context.Context, input models.Notification) (*models.Notification, error) {
	if input.Title == "" {
		return nil, invalid("title", "required")
	}
	if input.Type == "" {
		input.Type = "general"
	}

	now := s.clock.Now()
	n := s.store.Notifications.Insert(func(id int64) models.Notification {
		return models.Notification{
			ID:        id,
			UserID:    input.UserID,
			Type:      input.Type,
			Title:     input.Title,
			Message:   input.Message,
			CreatedAt: now,
		}
	})

	util.NotificationsCreatedTotal.WithLabelValues(n.Type).Inc()
	return &n, nil
}

// ListNotifications lists a user's notifications, optionally only unread ones
func (s *MessagingService) ListNotifications(ctx context.Context, userID int64, unreadOnly bool) []models.Notification {
	return s.store.Notifications.List(func(n models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.Read)
	})
}

// UnreadCount counts a user's unread notifications
func (s *MessagingService) UnreadCount(ctx context.Context, userID int64) int {
	return len(s.ListNotifications(ctx, userID, true))
}

// MarkNotificationRead flags one notification as read
func (s *MessagingService) MarkNotificationRead(ctx context.Context, notificationID int64) (*models.Notification, error) {
	n, err := s.store.Notifications.Update(notificationID, func(n *models.Notification) error {
		n.Read = true
		return nil
	})
	if errors.Is(err, store.ErrNoRecord) {
		return nil, notFound("notification", notificationID)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllNotificationsRead flags every unread notification of a user as
// read and returns how many changed.
func (s *MessagingService) MarkAllNotificationsRead(ctx context.Context, userID int64) int {
	marked := 0
	for _, n := range s.ListNotifications(ctx, userID, true) {
		if _, err := s.store.Notifications.Update(n.ID, func(n *models.Notification) error {
			n.Read = true
			return nil
		}); err == nil {
			marked++
		}
	}
	return marked
}

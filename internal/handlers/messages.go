package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medivuno/telehealth-server/internal/apperr"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/store"
	"github.com/medivuno/telehealth-server/internal/utils"
)

// MessageHandler handles messaging related requests.
type MessageHandler struct {
	Messages *store.MessageStore
	Users    *store.UserStore
	Log      *logger.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *store.MessageStore, users *store.UserStore, log *logger.Logger) *MessageHandler {
	return &MessageHandler{Messages: messages, Users: users, Log: log}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	RecipientID     string `json:"recipientId" binding:"required"`
	Content         string `json:"content" binding:"required"`
	Subject         string `json:"subject"`
	ParentMessageID string `json:"parentMessageId"`
}

// canMessage: patients and doctors write to each other, admins to anyone.
func canMessage(from, to models.Role) bool {
	if from == models.RoleAdmin || to == models.RoleAdmin {
		return true
	}
	return (from == models.RolePatient && to == models.RoleDoctor) ||
		(from == models.RoleDoctor && to == models.RolePatient)
}

// SendMessage handles sending a new message.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.RecipientID == actor.UserID {
		utils.RespondError(c, h.Log, apperr.Invalid("recipientId", "cannot send a message to yourself"))
		return
	}

	ctx := c.Request.Context()
	recipient, err := h.Users.GetUser(ctx, req.RecipientID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if !canMessage(actor.Role, recipient.Role) {
		middleware.LogEntry(c, h.Log).WithFields(logrus.Fields{
			"sender_role":    actor.Role,
			"recipient_role": recipient.Role,
		}).Warn("Message denied")
		utils.RespondError(c, h.Log, apperr.ErrForbidden)
		return
	}

	msg := models.Message{
		SenderID:   actor.UserID,
		ReceiverID: recipient.ID,
		Content:    req.Content,
		Subject:    req.Subject,
		ParentID:   req.ParentMessageID,
		Status:     models.MessageStatusSent,
	}
	if err := h.Messages.Create(ctx, &msg); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}

// GetMessagesForUser lists the caller's messages, or with ?withUser= one
// conversation. Messages received in the listed scope are marked read.
func (h *MessageHandler) GetMessagesForUser(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	ctx := c.Request.Context()
	other := c.Query("withUser")
	msgs, err := h.Messages.ForUser(ctx, actor.UserID, other)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}

	now := time.Now()
	if err := h.Messages.MarkReadFrom(ctx, actor.UserID, other, now); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	for i := range msgs {
		if msgs[i].ReceiverID == actor.UserID && msgs[i].IsUnread() {
			msgs[i].Status = models.MessageStatusRead
			msgs[i].ReadAt = &now
		}
	}
	utils.Success(c, "Messages fetched successfully", msgs)
}

// ConversationPreview is one row of the conversation list.
type ConversationPreview struct {
	Partner     models.UserSanitized `json:"partner"`
	LastMessage models.Message       `json:"lastMessage"`
	UnreadCount int64                `json:"unreadCount"`
}

// GetConversations lists the caller's conversation partners with the latest
// message and unread count for each.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	convs, err := h.Messages.Conversations(c.Request.Context(), actor.UserID)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	previews := make([]ConversationPreview, len(convs))
	for i, conv := range convs {
		previews[i] = ConversationPreview{
			Partner:     conv.Partner.Sanitize(),
			LastMessage: conv.LastMessage,
			UnreadCount: conv.UnreadCount,
		}
	}
	utils.Success(c, "Conversations fetched successfully", previews)
}

// MarkMessageAsRead marks one received message as read.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	ctx := c.Request.Context()
	msg, err := h.Messages.Get(ctx, c.Param("messageId"))
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	if msg.ReceiverID != actor.UserID {
		utils.RespondError(c, h.Log, apperr.NotFound("message"))
		return
	}
	if !msg.IsUnread() {
		utils.Success(c, "Message already marked as read", msg)
		return
	}

	if err := h.Messages.MarkRead(ctx, msg, time.Now()); err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "Message marked as read successfully", msg)
}

// NewMessagesRequest represents the query params for getting new messages
type NewMessagesRequest struct {
	Since string `form:"since" binding:"required"`
}

// GetNewMessages returns messages created after ?since= (RFC 3339).
func (h *MessageHandler) GetNewMessages(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req NewMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	since, err := time.Parse(time.RFC3339, req.Since)
	if err != nil {
		utils.RespondError(c, h.Log, apperr.Invalid("since", "must be an RFC 3339 timestamp"))
		return
	}

	msgs, err := h.Messages.Since(c.Request.Context(), actor.UserID, since)
	if err != nil {
		utils.RespondError(c, h.Log, err)
		return
	}
	utils.Success(c, "New messages fetched successfully", msgs)
}

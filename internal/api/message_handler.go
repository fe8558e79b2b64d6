package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"portfolioParadise/internal/api/middleware"
	"portfolioParadise/internal/portfolio"
)

// MessageHandler 负责账号之间的站内消息。消息按身份提供方账号寻址，无需已注册档案。
type MessageHandler struct {
	svc *portfolio.Service
}

func NewMessageHandler(svc *portfolio.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

type sendMessageRequest struct {
	ToUserID uuid.UUID `json:"to_user_id" binding:"required"`
	Subject  string    `json:"subject"`
	Content  string    `json:"content"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.SendMessage(c.Request.Context(), portfolio.MessageInput{
		FromUserID: accountID,
		ToUserID:   req.ToUserID,
		Subject:    req.Subject,
		Content:    req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// Inbox 返回收件箱，unread=true 时只返回未读消息。
func (h *MessageHandler) Inbox(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	unreadOnly := c.Query("unread") == "true"
	msgs, err := h.svc.Inbox(c.Request.Context(), accountID, unreadOnly, limitQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": msgs})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.MarkRead(c.Request.Context(), accountID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), accountID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

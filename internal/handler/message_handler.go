package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sim-ashish/chat-service/internal/model"
	"github.com/sim-ashish/chat-service/internal/service"
	"go.uber.org/zap"
)

// MessageHandler serves chat history over HTTP.
type MessageHandler struct {
	history service.History
	limit   int
	logger  *zap.Logger
}

// NewMessageHandler creates the message history handler.
func NewMessageHandler(history service.History, limit int, logger *zap.Logger) *MessageHandler {
	if limit <= 0 {
		limit = service.DefaultHistoryLimit
	}
	return &MessageHandler{history: history, limit: limit, logger: logger}
}

// GetMessages returns up to the configured limit of most recent messages,
// newest first. GET /messages
func (h *MessageHandler) GetMessages(c *gin.Context) {
	msgs, err := h.history.List(c.Request.Context(), h.limit)
	if err != nil {
		h.logger.Error("history list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	c.JSON(http.StatusOK, model.MessagesResponse{Messages: msgs})
}

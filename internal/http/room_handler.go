package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"family-chat/internal/domain"
	"family-chat/internal/service"
)

// RoomHandler mantiene dependencias para los endpoints de la sala familiar.
type RoomHandler struct {
	logger   *zap.Logger
	roomServ *service.RoomService
}

// NewRoomHandler crea una instancia de RoomHandler con dependencias necesarias.
func NewRoomHandler(logger *zap.Logger, roomServ *service.RoomService) *RoomHandler {
	return &RoomHandler{logger: logger, roomServ: roomServ}
}

type listedMessage struct {
	ID    string        `json:"id"`
	Role  string        `json:"role"`
	Parts []domain.Part `json:"parts"`
}

// ListMessages maneja GET /messages. Una falla de lectura degrada a lista
// vacía con 200 para mantener la sala usable.
func (h *RoomHandler) ListMessages(c *gin.Context) {
	messages, err := h.roomServ.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list messages failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"messages": []listedMessage{}})
		return
	}

	out := make([]listedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, listedMessage{ID: msg.ID, Role: msg.Role, Parts: msg.Parts})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// PostMessage maneja POST /messages.
func (h *RoomHandler) PostMessage(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text required"})
		return
	}

	accountName := ""
	if claims, ok := GetAuthClaims(c); ok {
		accountName = claims.DisplayName
		if accountName == "" {
			accountName = claims.Email
		}
	}

	msg, err := h.roomServ.Post(c.Request.Context(), service.PostInput{
		Name:        req.Name,
		AccountName: accountName,
		Text:        req.Text,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message text required"})
			return
		}
		h.logger.Error("post message failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post message"})
		return
	}

	c.JSON(http.StatusOK, msg)
}

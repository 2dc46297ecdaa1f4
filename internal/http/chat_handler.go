package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"family-chat/internal/domain"
	"family-chat/internal/llm"
	"family-chat/internal/service"
)

// saveTimeout acota la persistencia asíncrona posterior al stream.
const saveTimeout = 10 * time.Second

// ChatHandler retransmite tokens del modelo al caller y persiste el
// desenlace de la conversación al terminar el stream.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	client   llm.StreamClient
	limiter  service.RateLimiter
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService, client llm.StreamClient, limiter service.RateLimiter) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
		client:   client,
		limiter:  limiter,
	}
}

type streamEvent struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Chat maneja POST /chat: retransmite la respuesta del modelo como SSE.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Messages []service.ConversationMessage `json:"messages"`
		ID       string                        `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages required"})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(h.rateKey(c)) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	sessionID := strings.TrimSpace(req.ID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	modelMessages := make([]llm.ChatMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role == "" {
			role = domain.RoleUser
		}
		modelMessages = append(modelMessages, llm.ChatMessage{
			Role:    role,
			Content: msg.Text(),
		})
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	h.sendEvent(c, flusher, streamEvent{Event: "start", SessionID: sessionID})

	// El contexto de la request cancela la llamada upstream si el cliente
	// abandona el stream.
	reply, err := h.client.StreamChat(c.Request.Context(), modelMessages, func(delta string) error {
		h.sendEvent(c, flusher, streamEvent{Event: "chunk", Content: delta})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Info("chat stream cancelled by client", zap.String("session_id", sessionID))
			return
		}
		h.logger.Error("chat stream failed", zap.Error(err), zap.String("session_id", sessionID))
		h.sendEvent(c, flusher, streamEvent{Event: "error", Error: "could not generate response"})
		return
	}

	h.sendEvent(c, flusher, streamEvent{Event: "done", SessionID: sessionID, Finished: true})

	// Persistencia best-effort, desacoplada de la respuesta ya enviada.
	conversation := append(req.Messages, service.ConversationMessage{
		Role:  domain.RoleAssistant,
		Parts: []domain.Part{domain.TextPart(reply)},
	})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := h.chatServ.SaveTail(ctx, sessionID, conversation); err != nil {
			h.logger.Warn("failed to save chat", zap.Error(err), zap.String("session_id", sessionID))
		}
	}()
}

func (h *ChatHandler) sendEvent(c *gin.Context, flusher http.Flusher, ev streamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if _, err := c.Writer.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}

func (h *ChatHandler) rateKey(c *gin.Context) string {
	if claims, ok := GetAuthClaims(c); ok && claims.Email != "" {
		return claims.Email
	}
	return c.ClientIP()
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"family-chat/internal/domain"
	"family-chat/internal/repository"
)

var ErrEmptyConversation = errors.New("conversation is empty")

// ConversationMessage es un turno de conversación tal como lo envía el
// cliente: rol más la secuencia ordenada de parts.
type ConversationMessage struct {
	ID    string        `json:"id,omitempty"`
	Role  string        `json:"role"`
	Parts []domain.Part `json:"parts"`
}

// Text concatena los parts de texto del turno, para enviarlo al modelo.
func (m ConversationMessage) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == domain.PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ChatService persiste el desenlace de una conversación con el asistente.
type ChatService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	messages repository.MessageRepository
}

func NewChatService(logger *zap.Logger, sessions repository.SessionRepository, messages repository.MessageRepository) *ChatService {
	return &ChatService{logger: logger, sessions: sessions, messages: messages}
}

// SaveTail garantiza la sala y persiste solo los últimos dos turnos de la
// conversación (el mensaje del usuario más reciente y la respuesta del
// asistente). Los turnos anteriores ya fueron guardados en llamadas previas;
// re-insertarlos duplicaría filas. Los mensajes del asistente se podan a sus
// parts de texto antes de almacenarse.
func (s *ChatService) SaveTail(ctx context.Context, sessionID string, conversation []ConversationMessage) error {
	if len(conversation) == 0 {
		return ErrEmptyConversation
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("session id required")
	}

	now := time.Now().UTC()
	if err := s.sessions.Ensure(ctx, domain.Session{ID: sessionID, CreatedAt: now}); err != nil {
		return err
	}

	tail := conversation
	if len(tail) > 2 {
		tail = tail[len(tail)-2:]
	}

	for i, msg := range tail {
		role := strings.ToLower(strings.TrimSpace(msg.Role))
		if role != domain.RoleAssistant {
			role = domain.RoleUser
		}
		parts := msg.Parts
		if role == domain.RoleAssistant {
			parts = domain.TextParts(parts)
		}
		content, err := domain.EncodeParts(parts)
		if err != nil {
			return err
		}
		stored := domain.Message{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Role:      role,
			Content:   content,
			// Offset mínimo para que el orden por created_at sea estable
			// entre los dos turnos del mismo guardado.
			CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.messages.Create(ctx, stored); err != nil {
			return err
		}
	}

	s.logger.Info("conversation tail saved",
		zap.String("session_id", sessionID),
		zap.Int("messages", len(tail)),
	)
	return nil
}

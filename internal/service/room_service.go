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

const maxDisplayNameLen = 50

var ErrEmptyText = errors.New("message text required")

// RoomMessage es un mensaje de la sala con su contenido ya decodificado.
type RoomMessage struct {
	ID        string        `json:"id"`
	Role      string        `json:"role"`
	Parts     []domain.Part `json:"parts"`
	CreatedAt time.Time     `json:"createdAt"`
}

// RoomService maneja la sala familiar: listar y publicar mensajes.
type RoomService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	messages repository.MessageRepository
}

func NewRoomService(logger *zap.Logger, sessions repository.SessionRepository, messages repository.MessageRepository) *RoomService {
	return &RoomService{logger: logger, sessions: sessions, messages: messages}
}

// List devuelve todos los mensajes de la sala ordenados por created_at
// ascendente, con los parts decodificados. Un mensaje cuyo contenido no
// decodifica se omite con warning para no romper la sala entera.
func (s *RoomService) List(ctx context.Context) ([]RoomMessage, error) {
	stored, err := s.messages.ListBySessionID(ctx, domain.FamilyRoomID)
	if err != nil {
		return nil, err
	}

	out := make([]RoomMessage, 0, len(stored))
	for _, msg := range stored {
		parts, err := msg.Parts()
		if err != nil {
			s.logger.Warn("skipping undecodable message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, RoomMessage{
			ID:        msg.ID,
			Role:      strings.ToLower(msg.Role),
			Parts:     parts,
			CreatedAt: msg.CreatedAt,
		})
	}
	return out, nil
}

type PostInput struct {
	// Name es el display name pedido por el caller; puede venir vacío.
	Name string
	// AccountName es el nombre de la cuenta autenticada, usado como fallback.
	AccountName string
	Text        string
}

// Post publica un mensaje de usuario en la sala. Garantiza que la fila de
// la sala exista antes del insert; la sala quedando creada sin mensaje si
// el insert falla es aceptable.
func (s *RoomService) Post(ctx context.Context, input PostInput) (RoomMessage, error) {
	if strings.TrimSpace(input.Text) == "" {
		return RoomMessage{}, ErrEmptyText
	}

	displayName := resolveDisplayName(input.Name, input.AccountName)
	parts := []domain.Part{domain.TextPart(displayName + ": " + input.Text)}
	content, err := domain.EncodeParts(parts)
	if err != nil {
		return RoomMessage{}, err
	}

	now := time.Now().UTC()
	if err := s.sessions.Ensure(ctx, domain.Session{ID: domain.FamilyRoomID, CreatedAt: now}); err != nil {
		return RoomMessage{}, err
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		SessionID: domain.FamilyRoomID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: now,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return RoomMessage{}, err
	}

	return RoomMessage{
		ID:        msg.ID,
		Role:      msg.Role,
		Parts:     parts,
		CreatedAt: msg.CreatedAt,
	}, nil
}

func resolveDisplayName(name, accountName string) string {
	displayName := strings.TrimSpace(name)
	if displayName == "" {
		displayName = strings.TrimSpace(accountName)
	}
	if displayName == "" {
		displayName = "Guest"
	}
	if runes := []rune(displayName); len(runes) > maxDisplayNameLen {
		displayName = string(runes[:maxDisplayNameLen])
	}
	return displayName
}

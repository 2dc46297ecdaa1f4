package domain

import "time"

// FamilyRoomID identifica la sala familiar compartida. Las conversaciones
// con el asistente usan ids generados por conversación.
const FamilyRoomID = "family-room"

// Session es una sala de conversación persistente.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

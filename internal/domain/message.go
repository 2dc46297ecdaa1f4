package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message pertenece a exactamente una Session. Content guarda la secuencia
// de parts serializada como JSON; el orden de lectura lo define created_at.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Parts decodifica el contenido almacenado.
func (m Message) Parts() ([]Part, error) {
	return DecodeParts(m.Content)
}

package llm

import "context"

// MockStreamClient permite tests sin llamar a un proveedor real.
// Emite Chunks en orden y devuelve la concatenación.
type MockStreamClient struct {
	Chunks []string
	Err    error

	LastMessages []ChatMessage
}

func (m *MockStreamClient) StreamChat(ctx context.Context, messages []ChatMessage, onDelta func(delta string) error) (string, error) {
	m.LastMessages = messages
	if m.Err != nil {
		return "", m.Err
	}
	var full string
	for _, chunk := range m.Chunks {
		full += chunk
		if onDelta != nil {
			if err := onDelta(chunk); err != nil {
				return full, err
			}
		}
	}
	return full, nil
}

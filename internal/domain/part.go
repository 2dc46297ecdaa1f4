package domain

import "encoding/json"

// PartTypeText es el único tipo de part que el sistema produce hoy.
const PartTypeText = "text"

// Part es un fragmento tipado del contenido de un mensaje.
type Part struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextPart construye un part de texto.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// EncodeParts serializa la secuencia ordenada de parts.
func EncodeParts(parts []Part) (string, error) {
	b, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeParts deserializa el contenido almacenado de un mensaje.
func DecodeParts(content string) ([]Part, error) {
	var parts []Part
	if err := json.Unmarshal([]byte(content), &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// TextParts filtra dejando solo los parts de tipo texto.
func TextParts(parts []Part) []Part {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if p.Type == PartTypeText {
			out = append(out, p)
		}
	}
	return out
}

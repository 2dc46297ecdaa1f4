package domain

import "testing"

func TestEncodeDecodeParts(t *testing.T) {
	content, err := EncodeParts([]Part{TextPart("Alice: hello")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if content != `[{"type":"text","text":"Alice: hello"}]` {
		t.Fatalf("unexpected encoding: %s", content)
	}

	parts, err := DecodeParts(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(parts) != 1 || parts[0].Type != PartTypeText || parts[0].Text != "Alice: hello" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestDecodePartsRejectsInvalidJSON(t *testing.T) {
	if _, err := DecodeParts("not json"); err == nil {
		t.Fatal("expected error for invalid content")
	}
}

func TestTextPartsFiltersOtherTypes(t *testing.T) {
	parts := []Part{
		{Type: "reasoning", Text: "hidden"},
		TextPart("visible"),
		{Type: "tool-call"},
		TextPart("also visible"),
	}
	filtered := TextParts(parts)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 text parts, got %d", len(filtered))
	}
	if filtered[0].Text != "visible" || filtered[1].Text != "also visible" {
		t.Fatalf("order not preserved: %+v", filtered)
	}
}

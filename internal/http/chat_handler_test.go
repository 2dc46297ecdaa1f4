package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"family-chat/internal/domain"
	"family-chat/internal/llm"
	"family-chat/internal/service"
)

func chatBody(id string, turns ...[2]string) map[string]any {
	messages := make([]map[string]any, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, map[string]any{
			"role":  turn[0],
			"parts": []map[string]string{{"type": "text", "text": turn[1]}},
		})
	}
	body := map[string]any{"messages": messages}
	if id != "" {
		body["id"] = id
	}
	return body
}

func decodeSSE(t *testing.T, body string) []streamEvent {
	t.Helper()
	var events []streamEvent
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data:")), &ev); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func waitForMessages(t *testing.T, repo *mockMessageRepo, sessionID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if repo.count(sessionID) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages in %s, have %d", want, sessionID, repo.count(sessionID))
}

func TestChatStreamsAndPersistsTail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.llm.Chunks = []string{"Hi", " kid"}

	rec := doJSON(env.router, http.MethodPost, "/chat", "", chatBody("sess-1",
		[2]string{"user", "u1"},
		[2]string{"assistant", "a1"},
		[2]string{"user", "u2"},
	))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected SSE content type, got %q", ct)
	}

	events := decodeSSE(t, rec.Body.String())
	if len(events) < 4 {
		t.Fatalf("expected start+chunks+done, got %+v", events)
	}
	if events[0].Event != "start" || events[0].SessionID != "sess-1" {
		t.Fatalf("unexpected start event: %+v", events[0])
	}
	var streamed strings.Builder
	for _, ev := range events {
		if ev.Event == "chunk" {
			streamed.WriteString(ev.Content)
		}
	}
	if streamed.String() != "Hi kid" {
		t.Fatalf("expected streamed reply %q, got %q", "Hi kid", streamed.String())
	}
	last := events[len(events)-1]
	if last.Event != "done" || !last.Finished {
		t.Fatalf("unexpected final event: %+v", last)
	}

	// Se persisten solo los dos últimos turnos: u2 y la respuesta nueva.
	waitForMessages(t, env.messages, "sess-1", 2)
	stored, _ := env.messages.ListBySessionID(context.Background(), "sess-1")
	if stored[0].Role != domain.RoleUser || stored[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %q, %q", stored[0].Role, stored[1].Role)
	}
	userParts, err := stored[0].Parts()
	if err != nil || userParts[0].Text != "u2" {
		t.Fatalf("expected u2 persisted, got %+v (%v)", userParts, err)
	}
	replyParts, err := stored[1].Parts()
	if err != nil || replyParts[0].Text != "Hi kid" {
		t.Fatalf("expected assistant reply persisted, got %+v (%v)", replyParts, err)
	}
}

func TestChatGeneratesSessionIDWhenAbsent(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := doJSON(env.router, http.MethodPost, "/chat", "", chatBody("", [2]string{"user", "hello"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	events := decodeSSE(t, rec.Body.String())
	if events[0].SessionID == "" {
		t.Fatal("expected generated session id in start event")
	}
	waitForMessages(t, env.messages, events[0].SessionID, 2)
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := doJSON(env.router, http.MethodPost, "/chat", "", map[string]any{"messages": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatStreamFailureDoesNotPersist(t *testing.T) {
	env := newTestEnv(t, nil)
	env.llm.Err = errors.New("upstream down")

	rec := doJSON(env.router, http.MethodPost, "/chat", "", chatBody("sess-err", [2]string{"user", "hello"}))
	events := decodeSSE(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Event != "error" {
		t.Fatalf("expected error event, got %+v", last)
	}

	time.Sleep(50 * time.Millisecond)
	if got := env.messages.count("sess-err"); got != 0 {
		t.Fatalf("failed stream must not persist, got %d rows", got)
	}
}

func TestChatPersistenceFailureDoesNotAffectResponse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.messages.createErr = errors.New("insert failed")

	rec := doJSON(env.router, http.MethodPost, "/chat", "", chatBody("sess-2", [2]string{"user", "hello"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite persistence failure, got %d", rec.Code)
	}
	events := decodeSSE(t, rec.Body.String())
	last := events[len(events)-1]
	if last.Event != "done" || !last.Finished {
		t.Fatalf("stream must complete normally, got %+v", last)
	}
}

func TestChatRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := newMockSessionRepo()
	messages := newMockMessageRepo()
	mockLLM := &llm.MockStreamClient{Chunks: []string{"ok"}}

	handler := NewChatHandler(
		logger,
		service.NewChatService(logger, sessions, messages),
		mockLLM,
		service.NewMemoryRateLimiter(time.Minute, 1),
	)
	router := gin.New()
	router.POST("/chat", handler.Chat)

	rec := doJSON(router, http.MethodPost, "/chat", "", chatBody("sess-rl", [2]string{"user", "hello"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec = doJSON(router, http.MethodPost, "/chat", "", chatBody("sess-rl", [2]string{"user", "again"}))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}

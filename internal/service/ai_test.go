package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/futurelink/zbot/internal/biz/domain"
)

func newAIHandlerWithServer(t *testing.T, handler http.HandlerFunc) (*AIHandler, *mockTransport) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	transport := newMockTransport()
	h := NewAIHandler(openai.NewClientWithConfig(cfg), "gpt-4o-mini", transport, zerolog.Nop())
	return h, transport
}

func completionReply(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}
}

func TestAIHandler_FailedCompletionLeavesNoMemory(t *testing.T) {
	h, _ := newAIHandlerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	})

	if _, err := h.answer(context.Background(), "chat-1", "what is Go?"); err == nil {
		t.Fatal("expected an error")
	}
	if got := h.history("chat-1"); len(got) != 0 {
		t.Errorf("failed exchange must not enter memory, got %d turns", len(got))
	}
}

func TestAIHandler_SuccessfulExchangeRemembered(t *testing.T) {
	var payload openai.ChatCompletionRequest
	h, _ := newAIHandlerWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		completionReply("Go is a language.")(w, r)
	})

	reply, err := h.answer(context.Background(), "chat-1", "what is Go?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Go is a language." {
		t.Errorf("reply = %q", reply)
	}

	turns := h.history("chat-1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 remembered turns, got %d", len(turns))
	}
	if turns[0].Role != openai.ChatMessageRoleUser || turns[1].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("unexpected roles %q/%q", turns[0].Role, turns[1].Role)
	}

	// The follow-up request must carry system + prior exchange + new turn.
	if _, err := h.answer(context.Background(), "chat-1", "and who made it?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Messages) != 4 {
		t.Errorf("follow-up carried %d messages, want 4", len(payload.Messages))
	}
	if payload.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q", payload.Messages[0].Role)
	}
}

func TestAIHandler_MemoryWindowTrimmed(t *testing.T) {
	h := NewAIHandler(nil, "", newMockTransport(), zerolog.Nop())
	for i := 0; i < aiMemoryTurns+4; i++ {
		h.remember("chat-1", openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: "x"})
	}
	if got := len(h.history("chat-1")); got != aiMemoryTurns {
		t.Errorf("window = %d turns, want %d", got, aiMemoryTurns)
	}
}

func TestAIHandler_CannedAnswers(t *testing.T) {
	h := NewAIHandler(nil, "", newMockTransport(), zerolog.Nop())

	reply, err := h.answer(context.Background(), "chat-1", "Who are you?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply == "" {
		t.Error("canned question should answer without a client")
	}

	if _, err := h.answer(context.Background(), "chat-1", "what is Go?"); err == nil {
		t.Error("non-canned question without a client should fail")
	}
}

func TestAIHandler_BroadcastReply(t *testing.T) {
	transport := newMockTransport()
	h := NewAIHandler(nil, "", transport, zerolog.Nop())

	e := &domain.Event{
		Chat:   "254700000009@s.whatsapp.net",
		Sender: "254700000009@s.whatsapp.net",
		Kind:   domain.ChatKindPrivate,
		Body:   "who are you",
		Quoted: "📢 OFFICIAL BROADCAST: new offers this week",
	}
	h.MaybeBroadcastReply(context.Background(), e)
	if len(transport.sent()) != 1 {
		t.Fatalf("reply to a broadcast should be answered, sent=%v", transport.sent())
	}

	plain := &domain.Event{
		Chat:   e.Chat,
		Sender: e.Sender,
		Kind:   domain.ChatKindPrivate,
		Body:   "who are you",
		Quoted: "some other message",
	}
	h.MaybeBroadcastReply(context.Background(), plain)
	if len(transport.sent()) != 1 {
		t.Error("replies to ordinary messages must be ignored")
	}
}

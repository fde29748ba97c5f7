package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const (
	aiRequestTimeout = 45 * time.Second
	aiMemoryTurns    = 10
)

// broadcastTag marks outbound campaign messages so that replies to them
// can be answered automatically.
const broadcastTag = "OFFICIAL BROADCAST"

// aiSystemPrompt frames the assistant for short chat replies.
const aiSystemPrompt = `You are Z-BOT, a friendly WhatsApp assistant. Answer briefly and helpfully. Keep replies under 150 words unless the question needs more.`

// AIHandler serves the assistant commands and answers replies to official
// broadcast messages.
type AIHandler struct {
	client    *openai.Client
	model     string
	transport repo.Transport

	mu     sync.Mutex
	memory map[string][]openai.ChatCompletionMessage

	// Canned answers checked before the model is called.
	saved map[string]string

	log zerolog.Logger
}

// NewAIHandler creates the assistant. client may be nil when no API key
// is configured; the commands then answer with a disabled notice.
func NewAIHandler(client *openai.Client, model string, transport repo.Transport, log zerolog.Logger) *AIHandler {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &AIHandler{
		client:    client,
		model:     model,
		transport: transport,
		memory:    make(map[string][]openai.ChatCompletionMessage),
		saved: map[string]string{
			"who are you":  "I'm Z-BOT, your WhatsApp assistant 🤖",
			"who made you": "I was built by the Z-BOT team.",
		},
		log: log.With().Str("component", "ai").Logger(),
	}
}

// Register wires the handler's commands into the router.
func (h *AIHandler) Register(r *Router) {
	r.Register(domain.TierUser, h.Ask, "ai", "gpt", "bot")
	r.Register(domain.TierUser, h.Draw, "draw", "img")
	r.RegisterFreeText(h.MaybeBroadcastReply)
}

// Ask answers a question, keeping a short per-chat conversation memory.
func (h *AIHandler) Ask(ctx context.Context, req *CommandRequest) error {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return fmt.Errorf("ask me something, e.g. .ai what is Go?")
	}
	if err := h.transport.Presence(ctx, req.Event.Chat, repo.PresenceComposing); err != nil {
		h.log.Debug().Err(err).Msg("presence update failed")
	}

	reply, err := h.answer(ctx, req.Event.Chat, query)
	if err != nil {
		return err
	}
	return h.transport.SendText(ctx, req.Event.Chat, reply)
}

// Draw generates an image from a prompt.
func (h *AIHandler) Draw(ctx context.Context, req *CommandRequest) error {
	if h.client == nil {
		return fmt.Errorf("AI is not configured")
	}
	prompt := strings.Join(req.Args, " ")
	if prompt == "" {
		return fmt.Errorf("describe the image, e.g. .draw a sunset over Nairobi")
	}
	if err := h.transport.Presence(ctx, req.Event.Chat, repo.PresenceComposing); err != nil {
		h.log.Debug().Err(err).Msg("presence update failed")
	}

	ctx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	resp, err := h.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return fmt.Errorf("failed to generate image: %w", err)
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("no image returned")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	return h.transport.SendImage(ctx, req.Event.Chat, data, "🎨 "+prompt)
}

// MaybeBroadcastReply answers direct replies to an official broadcast.
func (h *AIHandler) MaybeBroadcastReply(ctx context.Context, e *domain.Event) {
	if e.Kind != domain.ChatKindPrivate || e.Body == domain.MediaMarker {
		return
	}
	if !strings.Contains(strings.ToUpper(e.Quoted), broadcastTag) {
		return
	}
	reply, err := h.answer(ctx, e.Chat, e.Body)
	if err != nil {
		h.log.Error().Err(err).Str("chat", e.Chat).Msg("broadcast reply failed")
		return
	}
	if err := h.transport.SendText(ctx, e.Chat, reply); err != nil {
		h.log.Error().Err(err).Str("chat", e.Chat).Msg("broadcast reply send failed")
	}
}

// answer resolves a query through the canned answers or the model.
func (h *AIHandler) answer(ctx context.Context, chat, query string) (string, error) {
	if canned, ok := h.saved[strings.ToLower(strings.TrimSpace(strings.TrimSuffix(query, "?")))]; ok {
		return canned, nil
	}
	if h.client == nil {
		return "", fmt.Errorf("AI is not configured")
	}

	userTurn := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: query,
	}
	history := h.history(chat)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: aiSystemPrompt,
	})
	messages = append(messages, history...)
	messages = append(messages, userTurn)

	ctx, cancel := context.WithTimeout(ctx, aiRequestTimeout)
	defer cancel()

	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)

	// The exchange enters the memory only once it succeeded, so a failed
	// call is never replayed as context.
	h.remember(chat, userTurn, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply,
	})
	return reply, nil
}

// history returns a copy of the chat's memory window.
func (h *AIHandler) history(chat string) []openai.ChatCompletionMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]openai.ChatCompletionMessage, len(h.memory[chat]))
	copy(out, h.memory[chat])
	return out
}

// remember appends turns to the chat's memory, keeping only the most
// recent ones.
func (h *AIHandler) remember(chat string, msgs ...openai.ChatCompletionMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := append(h.memory[chat], msgs...)
	if len(turns) > aiMemoryTurns {
		turns = turns[len(turns)-aiMemoryTurns:]
	}
	h.memory[chat] = turns
}

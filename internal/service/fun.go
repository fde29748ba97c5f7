package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// StickerHandler converts image media into stickers.
type StickerHandler struct {
	transport repo.Transport
	prefix    string
	log       zerolog.Logger
}

// NewStickerHandler creates the sticker command handler.
func NewStickerHandler(transport repo.Transport, prefix string, log zerolog.Logger) *StickerHandler {
	return &StickerHandler{
		transport: transport,
		prefix:    prefix,
		log:       log.With().Str("component", "sticker").Logger(),
	}
}

// Register wires the handler's commands into the router.
func (h *StickerHandler) Register(r *Router) {
	r.Register(domain.TierUser, h.Sticker, "sticker", "s")
}

// Sticker converts the attached or quoted image into a sticker. The
// transport re-encodes raw image bytes to webp on upload.
func (h *StickerHandler) Sticker(ctx context.Context, req *CommandRequest) error {
	ref := req.Event.Media
	if ref == nil {
		ref = req.Event.QuotedMedia
	}
	if ref == nil || (ref.Kind != "image" && ref.Kind != "sticker") {
		return fmt.Errorf("send or quote an image with %ssticker", h.prefix)
	}
	data, err := h.transport.Download(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}
	if err := h.transport.SendSticker(ctx, req.Event.Chat, data); err != nil {
		return fmt.Errorf("failed to send sticker: %w", err)
	}
	h.log.Info().Str("chat", req.Event.Chat).Msg("sticker created")
	return nil
}

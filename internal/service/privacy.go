package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// PrivacyHandler keeps the account looking online and mirrors view-once
// media to the operator before it disappears.
type PrivacyHandler struct {
	transport repo.Transport
	owner     string
	log       zerolog.Logger
}

// NewPrivacyHandler creates the privacy processor. owner is the JID that
// receives mirrored view-once media.
func NewPrivacyHandler(transport repo.Transport, owner string, log zerolog.Logger) *PrivacyHandler {
	return &PrivacyHandler{
		transport: transport,
		owner:     owner,
		log:       log.With().Str("component", "privacy").Logger(),
	}
}

// Handle runs after routing for every non-status inbound event.
func (h *PrivacyHandler) Handle(ctx context.Context, e *domain.Event) {
	if err := h.transport.Presence(ctx, e.Chat, repo.PresenceAvailable); err != nil {
		h.log.Debug().Err(err).Msg("presence update failed")
	}

	if !e.IsViewOnce || e.Media == nil || h.owner == "" {
		return
	}

	data, err := h.transport.Download(ctx, e.Media)
	if err != nil {
		h.log.Error().Err(err).Str("sender", e.Sender).Msg("view-once download failed")
		return
	}

	caption := fmt.Sprintf("👁️ View-once from %s (%s)", e.PushName, domain.PhonePart(e.Sender))
	switch e.Media.Kind {
	case "video":
		err = h.transport.SendVideo(ctx, h.owner, data, caption)
	default:
		err = h.transport.SendImage(ctx, h.owner, data, caption)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("view-once mirror failed")
		return
	}
	h.log.Info().Str("sender", e.Sender).Msg("view-once media mirrored")
}

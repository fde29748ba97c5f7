package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// StatusHandler processes status updates: every status is marked read so
// the poster sees the view receipt, and media statuses are archived to
// disk when auto-status is enabled.
type StatusHandler struct {
	settings    repo.SettingsRepo
	transport   repo.Transport
	downloadDir string
	log         zerolog.Logger
}

// NewStatusHandler creates the status processor.
func NewStatusHandler(settings repo.SettingsRepo, transport repo.Transport, downloadDir string, log zerolog.Logger) *StatusHandler {
	return &StatusHandler{
		settings:    settings,
		transport:   transport,
		downloadDir: downloadDir,
		log:         log.With().Str("component", "status").Logger(),
	}
}

// Handle views one status event.
func (h *StatusHandler) Handle(ctx context.Context, e *domain.Event) {
	if err := h.transport.MarkRead(ctx, e.Chat, e.Sender, []string{e.ID}); err != nil {
		h.log.Error().Err(err).Str("sender", e.Sender).Msg("status read receipt failed")
	}

	st, err := h.settings.Load(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("settings load failed")
		return
	}
	if !st.AutoStatus || !e.IsMedia || e.Media == nil {
		return
	}

	data, err := h.transport.Download(ctx, e.Media)
	if err != nil {
		h.log.Error().Err(err).Str("sender", e.Sender).Msg("status download failed")
		return
	}

	if err := os.MkdirAll(h.downloadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("download dir create failed")
		return
	}
	name := fmt.Sprintf("status_%s_%d%s", domain.PhonePart(e.Sender), time.Now().UnixMilli(), mediaExt(e.Media.Kind))
	path := filepath.Join(h.downloadDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.log.Error().Err(err).Str("path", path).Msg("status save failed")
		return
	}
	h.log.Info().Str("path", path).Str("sender", e.Sender).Msg("status media archived")
}

func mediaExt(kind string) string {
	switch kind {
	case "image":
		return ".jpg"
	case "video":
		return ".mp4"
	case "audio":
		return ".ogg"
	case "sticker":
		return ".webp"
	default:
		return ".bin"
	}
}

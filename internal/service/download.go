package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// MediaFile is a resolved external download.
type MediaFile struct {
	Title    string
	Data     []byte
	Mimetype string
}

// MediaAPI resolves external media: audio search, video fetch and the
// menu icon. The resty client in internal/infra/media implements it.
type MediaAPI interface {
	Song(ctx context.Context, query string) (*MediaFile, error)
	Video(ctx context.Context, url string) (*MediaFile, error)
	MenuIcon(ctx context.Context) ([]byte, error)
}

// DownloadHandler serves the downloader commands.
type DownloadHandler struct {
	transport repo.Transport
	media     MediaAPI
	prefix    string
	log       zerolog.Logger
}

// NewDownloadHandler creates the downloader command handler.
func NewDownloadHandler(transport repo.Transport, media MediaAPI, prefix string, log zerolog.Logger) *DownloadHandler {
	return &DownloadHandler{
		transport: transport,
		media:     media,
		prefix:    prefix,
		log:       log.With().Str("component", "download").Logger(),
	}
}

// Register wires the handler's commands into the router.
func (h *DownloadHandler) Register(r *Router) {
	r.Register(domain.TierUser, h.Play, "play", "song")
	r.Register(domain.TierUser, h.Video, "video", "dl")
}

// Play searches for a song and sends it as audio.
func (h *DownloadHandler) Play(ctx context.Context, req *CommandRequest) error {
	query := strings.Join(req.Args, " ")
	if query == "" {
		return fmt.Errorf("usage: %splay <song name>", h.prefix)
	}
	if err := h.transport.Presence(ctx, req.Event.Chat, repo.PresenceRecording); err != nil {
		h.log.Debug().Err(err).Msg("presence update failed")
	}
	file, err := h.media.Song(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to fetch song: %w", err)
	}
	if err := h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("🎵 *%s*\nSending audio...", file.Title)); err != nil {
		h.log.Error().Err(err).Msg("song caption send failed")
	}
	mimetype := file.Mimetype
	if mimetype == "" {
		mimetype = "audio/mpeg"
	}
	return h.transport.SendAudio(ctx, req.Event.Chat, file.Data, mimetype)
}

// Video fetches a video by link and sends it.
func (h *DownloadHandler) Video(ctx context.Context, req *CommandRequest) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("usage: %svideo <link>", h.prefix)
	}
	if err := h.transport.Presence(ctx, req.Event.Chat, repo.PresenceComposing); err != nil {
		h.log.Debug().Err(err).Msg("presence update failed")
	}
	file, err := h.media.Video(ctx, req.Args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch video: %w", err)
	}
	return h.transport.SendVideo(ctx, req.Event.Chat, file.Data, "🎬 "+file.Title)
}

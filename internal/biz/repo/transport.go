package repo

import (
	"context"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// GroupInfo describes a multi-party chat.
type GroupInfo struct {
	JID          string
	Subject      string
	Participants []string
}

// ParticipantAction is a group membership change.
type ParticipantAction string

const (
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantPromote ParticipantAction = "promote"
)

// Presence states understood by the transport.
const (
	PresenceAvailable = "available"
	PresenceComposing = "composing"
	PresenceRecording = "recording"
	PresencePaused    = "paused"
)

// Transport is the outbound side of the chat transport. The whatsmeow
// adapter in internal/infra/wa is the only implementation; everything else
// treats the transport as a black box.
type Transport interface {
	SendText(ctx context.Context, to, text string) error
	SendTextMentions(ctx context.Context, to, text string, mentions []string) error
	SendImage(ctx context.Context, to string, data []byte, caption string) error
	SendAudio(ctx context.Context, to string, data []byte, mimetype string) error
	SendVideo(ctx context.Context, to string, data []byte, caption string) error
	SendDocument(ctx context.Context, to string, data []byte, filename, mimetype, caption string) error
	SendSticker(ctx context.Context, to string, data []byte) error

	// Download fetches the media behind a ref extracted from an event.
	Download(ctx context.Context, ref *domain.MediaRef) ([]byte, error)

	GroupMetadata(ctx context.Context, jid string) (*GroupInfo, error)
	UpdateParticipants(ctx context.Context, jid string, targets []string, action ParticipantAction) error
	SetGroupAnnounce(ctx context.Context, jid string, announce bool) error

	Presence(ctx context.Context, chat, state string) error
	MarkRead(ctx context.Context, chat, sender string, ids []string) error

	// OwnJID is the bot's own direct-chat address, empty until connected.
	OwnJID() string
}

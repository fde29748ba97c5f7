package wa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// Client adapts a whatsmeow client to repo.Transport. All sends pass
// through a shared rate limiter to keep outbound traffic ban-safe.
type Client struct {
	wm      *whatsmeow.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient wraps an established whatsmeow client. ratePerMinute caps
// outbound messages across all send methods.
func NewClient(wm *whatsmeow.Client, ratePerMinute int, log zerolog.Logger) *Client {
	if ratePerMinute <= 0 {
		ratePerMinute = 20
	}
	return &Client{
		wm:      wm,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), 3),
		log:     log.With().Str("component", "transport").Logger(),
	}
}

// parseJID accepts a full JID or a bare phone number.
func parseJID(s string) (types.JID, error) {
	if strings.Contains(s, "@") {
		return types.ParseJID(s)
	}
	if s == "" {
		return types.JID{}, fmt.Errorf("empty jid")
	}
	return types.NewJID(s, types.DefaultUserServer), nil
}

func (c *Client) send(ctx context.Context, to string, msg *waE2E.Message) error {
	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("failed to parse jid %q: %w", to, err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.wm.SendMessage(ctx, jid, msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.log.Debug().Str("to", to).Str("id", resp.ID).Msg("message sent")
	return nil
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	return c.send(ctx, to, &waE2E.Message{Conversation: proto.String(text)})
}

// SendTextMentions sends text that tags the given JIDs.
func (c *Client) SendTextMentions(ctx context.Context, to, text string, mentions []string) error {
	msg := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: mentions,
			},
		},
	}
	return c.send(ctx, to, msg)
}

func (c *Client) upload(ctx context.Context, data []byte, mt whatsmeow.MediaType) (whatsmeow.UploadResponse, error) {
	up, err := c.wm.Upload(ctx, data, mt)
	if err != nil {
		return up, fmt.Errorf("failed to upload media: %w", err)
	}
	return up, nil
}

// SendImage uploads and sends an image with a caption.
func (c *Client) SendImage(ctx context.Context, to string, data []byte, caption string) error {
	up, err := c.upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return err
	}
	msg := &waE2E.Message{ImageMessage: &waE2E.ImageMessage{
		Caption:       proto.String(caption),
		Mimetype:      proto.String("image/jpeg"),
		URL:           &up.URL,
		DirectPath:    &up.DirectPath,
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    &up.FileLength,
	}}
	return c.send(ctx, to, msg)
}

// SendAudio uploads and sends an audio file.
func (c *Client) SendAudio(ctx context.Context, to string, data []byte, mimetype string) error {
	up, err := c.upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		return err
	}
	msg := &waE2E.Message{AudioMessage: &waE2E.AudioMessage{
		Mimetype:      proto.String(mimetype),
		URL:           &up.URL,
		DirectPath:    &up.DirectPath,
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    &up.FileLength,
	}}
	return c.send(ctx, to, msg)
}

// SendVideo uploads and sends a video with a caption.
func (c *Client) SendVideo(ctx context.Context, to string, data []byte, caption string) error {
	up, err := c.upload(ctx, data, whatsmeow.MediaVideo)
	if err != nil {
		return err
	}
	msg := &waE2E.Message{VideoMessage: &waE2E.VideoMessage{
		Caption:       proto.String(caption),
		Mimetype:      proto.String("video/mp4"),
		URL:           &up.URL,
		DirectPath:    &up.DirectPath,
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    &up.FileLength,
	}}
	return c.send(ctx, to, msg)
}

// SendDocument uploads and sends a document.
func (c *Client) SendDocument(ctx context.Context, to string, data []byte, filename, mimetype, caption string) error {
	up, err := c.upload(ctx, data, whatsmeow.MediaDocument)
	if err != nil {
		return err
	}
	msg := &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{
		Title:         proto.String(filename),
		FileName:      proto.String(filename),
		Caption:       proto.String(caption),
		Mimetype:      proto.String(mimetype),
		URL:           &up.URL,
		DirectPath:    &up.DirectPath,
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    &up.FileLength,
	}}
	return c.send(ctx, to, msg)
}

// SendSticker uploads and sends webp sticker data.
func (c *Client) SendSticker(ctx context.Context, to string, data []byte) error {
	up, err := c.upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return err
	}
	msg := &waE2E.Message{StickerMessage: &waE2E.StickerMessage{
		Mimetype:      proto.String("image/webp"),
		URL:           &up.URL,
		DirectPath:    &up.DirectPath,
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    &up.FileLength,
	}}
	return c.send(ctx, to, msg)
}

// Download fetches the media behind a ref produced by event extraction.
func (c *Client) Download(ctx context.Context, ref *domain.MediaRef) ([]byte, error) {
	if ref == nil {
		return nil, fmt.Errorf("nil media ref")
	}
	dl, ok := ref.Ref.(whatsmeow.DownloadableMessage)
	if !ok {
		return nil, fmt.Errorf("media ref is not downloadable")
	}
	data, err := c.wm.Download(ctx, dl)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	return data, nil
}

// GroupMetadata fetches the group's subject and member list.
func (c *Client) GroupMetadata(ctx context.Context, jidStr string) (*repo.GroupInfo, error) {
	jid, err := parseJID(jidStr)
	if err != nil {
		return nil, err
	}
	info, err := c.wm.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}
	participants := make([]string, 0, len(info.Participants))
	for _, p := range info.Participants {
		participants = append(participants, p.JID.String())
	}
	return &repo.GroupInfo{
		JID:          info.JID.String(),
		Subject:      info.Name,
		Participants: participants,
	}, nil
}

// UpdateParticipants removes or promotes group members.
func (c *Client) UpdateParticipants(ctx context.Context, jidStr string, targets []string, action repo.ParticipantAction) error {
	jid, err := parseJID(jidStr)
	if err != nil {
		return err
	}
	jids := make([]types.JID, 0, len(targets))
	for _, t := range targets {
		tj, err := parseJID(t)
		if err != nil {
			c.log.Warn().Str("target", t).Msg("invalid participant jid, skipped")
			continue
		}
		jids = append(jids, tj)
	}
	if len(jids) == 0 {
		return fmt.Errorf("no valid targets")
	}

	var change whatsmeow.ParticipantChange
	switch action {
	case repo.ParticipantRemove:
		change = whatsmeow.ParticipantChangeRemove
	case repo.ParticipantPromote:
		change = whatsmeow.ParticipantChangePromote
	default:
		return fmt.Errorf("unsupported participant action %q", action)
	}
	if _, err := c.wm.UpdateGroupParticipants(ctx, jid, jids, change); err != nil {
		return fmt.Errorf("failed to update participants: %w", err)
	}
	return nil
}

// SetGroupAnnounce locks or unlocks the group to admin-only posting.
func (c *Client) SetGroupAnnounce(ctx context.Context, jidStr string, announce bool) error {
	jid, err := parseJID(jidStr)
	if err != nil {
		return err
	}
	if err := c.wm.SetGroupAnnounce(ctx, jid, announce); err != nil {
		return fmt.Errorf("failed to set group announce: %w", err)
	}
	return nil
}

// Presence publishes a chat presence state.
func (c *Client) Presence(ctx context.Context, chat, state string) error {
	if state == repo.PresenceAvailable {
		return c.wm.SendPresence(ctx, types.PresenceAvailable)
	}
	jid, err := parseJID(chat)
	if err != nil {
		return err
	}
	var cp types.ChatPresence
	switch state {
	case repo.PresenceComposing, repo.PresenceRecording:
		cp = types.ChatPresenceComposing
	case repo.PresencePaused:
		cp = types.ChatPresencePaused
	default:
		return fmt.Errorf("unsupported presence state %q", state)
	}
	media := types.ChatPresenceMediaText
	if state == repo.PresenceRecording {
		media = types.ChatPresenceMediaAudio
	}
	return c.wm.SendChatPresence(ctx, jid, cp, media)
}

// MarkRead sends read receipts for the given message IDs.
func (c *Client) MarkRead(ctx context.Context, chatStr, senderStr string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	chat, err := parseJID(chatStr)
	if err != nil {
		return err
	}
	sender := chat
	if senderStr != "" && senderStr != chatStr {
		if sj, err := parseJID(senderStr); err == nil {
			sender = sj
		}
	}
	msgIDs := make([]types.MessageID, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			msgIDs = append(msgIDs, types.MessageID(id))
		}
	}
	return c.wm.MarkRead(ctx, msgIDs, time.Now(), chat, sender)
}

// OwnJID returns the bot's own direct-chat address, empty until paired.
func (c *Client) OwnJID() string {
	if c.wm.Store.ID == nil {
		return ""
	}
	return domain.FormatJID(c.wm.Store.ID.User)
}

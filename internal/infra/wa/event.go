package wa

import (
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// BuildEvent converts one transport message event into the canonical
// inbound event. It returns nil for events the pipeline ignores:
// protocol messages, reactions, key distribution and newsletter chats.
func BuildEvent(v *events.Message) *domain.Event {
	if v == nil || v.Message == nil {
		return nil
	}
	chat := v.Info.Chat
	if chat.Server == newsletterServer {
		return nil
	}

	msg := unwrapViewOnce(v.Message)
	isViewOnce := msg != v.Message
	if msg.ProtocolMessage != nil || msg.ReactionMessage != nil || msg.SenderKeyDistributionMessage != nil {
		return nil
	}

	kind := domain.ChatKindPrivate
	if chat.Server == groupServer {
		kind = domain.ChatKindGroup
	}

	e := &domain.Event{
		ID:         v.Info.ID,
		Chat:       chat.String(),
		Sender:     v.Info.Sender.ToNonAD().String(),
		PushName:   v.Info.PushName,
		Kind:       kind,
		FromMe:     v.Info.IsFromMe,
		IsViewOnce: isViewOnce,
		Timestamp:  v.Info.Timestamp,
	}

	e.Body = extractBody(msg)
	if e.Body == "" {
		e.Body = domain.MediaMarker
	}
	e.Media = extractMedia(msg)
	e.IsMedia = e.Media != nil

	if ctx := extractContext(msg); ctx != nil {
		if q := ctx.GetQuotedMessage(); q != nil {
			e.Quoted = extractBody(q)
			e.QuotedMedia = extractMedia(q)
		}
	}
	return e
}

// Chat server names understood by the pipeline.
const (
	groupServer      = "g.us"
	newsletterServer = "newsletter"
)

// unwrapViewOnce peels view-once wrappers down to the inner message.
func unwrapViewOnce(msg *waE2E.Message) *waE2E.Message {
	switch {
	case msg.ViewOnceMessage.GetMessage() != nil:
		return msg.ViewOnceMessage.GetMessage()
	case msg.ViewOnceMessageV2.GetMessage() != nil:
		return msg.ViewOnceMessageV2.GetMessage()
	case msg.ViewOnceMessageV2Extension.GetMessage() != nil:
		return msg.ViewOnceMessageV2Extension.GetMessage()
	}
	return msg
}

// extractBody walks the known text fields in priority order.
func extractBody(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	case msg.GetButtonsResponseMessage().GetSelectedButtonID() != "":
		return msg.GetButtonsResponseMessage().GetSelectedButtonID()
	case msg.GetTemplateButtonReplyMessage().GetSelectedID() != "":
		return msg.GetTemplateButtonReplyMessage().GetSelectedID()
	case msg.GetListResponseMessage().GetSingleSelectReply().GetSelectedRowID() != "":
		return msg.GetListResponseMessage().GetSingleSelectReply().GetSelectedRowID()
	}
	return ""
}

// extractMedia wraps the downloadable part of the message, if any.
func extractMedia(msg *waE2E.Message) *domain.MediaRef {
	switch {
	case msg.GetImageMessage() != nil:
		return &domain.MediaRef{Kind: "image", Ref: msg.GetImageMessage()}
	case msg.GetVideoMessage() != nil:
		return &domain.MediaRef{Kind: "video", Ref: msg.GetVideoMessage()}
	case msg.GetAudioMessage() != nil:
		return &domain.MediaRef{Kind: "audio", Ref: msg.GetAudioMessage()}
	case msg.GetDocumentMessage() != nil:
		return &domain.MediaRef{Kind: "document", Ref: msg.GetDocumentMessage()}
	case msg.GetStickerMessage() != nil:
		return &domain.MediaRef{Kind: "sticker", Ref: msg.GetStickerMessage()}
	}
	return nil
}

// extractContext finds the ContextInfo of the message variant in use.
func extractContext(msg *waE2E.Message) *waE2E.ContextInfo {
	switch {
	case msg.GetExtendedTextMessage().GetContextInfo() != nil:
		return msg.GetExtendedTextMessage().GetContextInfo()
	case msg.GetImageMessage().GetContextInfo() != nil:
		return msg.GetImageMessage().GetContextInfo()
	case msg.GetVideoMessage().GetContextInfo() != nil:
		return msg.GetVideoMessage().GetContextInfo()
	case msg.GetDocumentMessage().GetContextInfo() != nil:
		return msg.GetDocumentMessage().GetContextInfo()
	case msg.GetStickerMessage().GetContextInfo() != nil:
		return msg.GetStickerMessage().GetContextInfo()
	}
	return nil
}

// trimmedPhone strips everything but digits from a user-entered number.
func trimmedPhone(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

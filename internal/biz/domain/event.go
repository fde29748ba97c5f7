package domain

import "time"

// MediaMarker is the body used when a message carries no extractable text.
const MediaMarker = "Media/Non-text"

// StatusBroadcast is the origin address of status stories.
const StatusBroadcast = "status@broadcast"

// MediaRef is an opaque handle to downloadable media. Kind is the media
// class (image, video, audio, document); Ref is the transport-specific
// descriptor understood by Transport.Download.
type MediaRef struct {
	Kind string
	Ref  any
}

// Event is one inbound transport event after canonical field extraction.
type Event struct {
	ID       string
	Chat     string // chat address (group JID or peer JID)
	Sender   string // participant for groups, equals Chat for direct chats
	PushName string
	Kind     ChatKind
	FromMe   bool

	// Body is the extracted text, or MediaMarker when none of the text
	// fields were populated.
	Body    string
	IsMedia bool

	// Quoted is the text of the message this one replies to, if any.
	Quoted string

	Media       *MediaRef
	QuotedMedia *MediaRef
	IsViewOnce  bool

	Timestamp time.Time
}

// IsStatus reports whether the event originates from the status story feed.
func (e *Event) IsStatus() bool {
	return e.Chat == StatusBroadcast
}

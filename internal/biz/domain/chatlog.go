package domain

import "time"

// ChatKind distinguishes direct chats from multi-party chats.
type ChatKind string

const (
	ChatKindGroup   ChatKind = "Group"
	ChatKindPrivate ChatKind = "Private"
)

// GroupLogMaxAge is how long group-kind log entries are retained.
const GroupLogMaxAge = 2 * time.Hour

// ChatLogEntry is an immutable record of one inbound message. Group-kind
// entries are pruned after GroupLogMaxAge; private-kind entries are kept
// and periodically exported to backup snapshots.
type ChatLogEntry struct {
	Kind      ChatKind `json:"type"`
	Sender    string   `json:"sender"`
	Phone     string   `json:"phone"`
	GroupName string   `json:"group_name,omitempty"`
	Special   bool     `json:"special,omitempty"`
	Message   string   `json:"message"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
}

// Time returns the entry timestamp.
func (e ChatLogEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Expired reports whether a group-kind entry is older than cutoff.
// Private-kind entries never expire.
func (e ChatLogEntry) Expired(cutoff time.Time) bool {
	return e.Kind == ChatKindGroup && e.Time().Before(cutoff)
}

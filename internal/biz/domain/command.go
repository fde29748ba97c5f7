package domain

// Tier is the privilege tier of a command.
type Tier string

const (
	TierAdmin Tier = "Admin"
	TierUser  Tier = "User"
)

// CommandInvocation is one entry of the append-only command audit trail,
// written before the command's side effects run.
type CommandInvocation struct {
	Timestamp   string   `json:"timestamp"`
	UserType    string   `json:"user_type"` // Owner or User
	Phone       string   `json:"phone"`
	Command     string   `json:"command"`
	Tier        Tier     `json:"tier"`
	ChatKind    ChatKind `json:"chat_kind"`
	Destination string   `json:"destination"`
}

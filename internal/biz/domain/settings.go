package domain

import "time"

// NightMode suppresses group command processing for non-owner senders
// inside a local-time window. The window may wrap across midnight.
type NightMode struct {
	Active bool   `json:"active"`
	Start  string `json:"start"` // "15:04"
	End    string `json:"end"`
}

// Contains reports whether now falls inside the [Start, End) window.
// Always false while night mode is inactive.
func (n NightMode) Contains(now time.Time) bool {
	if !n.Active || n.Start == "" || n.End == "" {
		return false
	}
	cur := now.Format("15:04")
	if n.Start > n.End {
		// Wraps midnight, e.g. 22:00-06:00.
		return cur >= n.Start || cur < n.End
	}
	return cur >= n.Start && cur < n.End
}

// Settings is the process-wide configuration document. Mutated only by
// privileged command handlers; persisted after every mutation.
type Settings struct {
	AntiCall   bool      `json:"anticall"`
	AutoStatus bool      `json:"autostatus"`
	AutoClean  bool      `json:"autoclean"`
	NightMode  NightMode `json:"nightmode"`
}

// DefaultSettings returns the settings used when no document exists yet.
func DefaultSettings() Settings {
	return Settings{
		AutoClean: true,
		NightMode: NightMode{Start: "22:00", End: "06:00"},
	}
}

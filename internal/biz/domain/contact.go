package domain

import (
	"strings"
	"time"
)

// Classification is the privilege tier resolved for a sender address.
type Classification struct {
	IsOwner   bool
	IsSpecial bool
}

// Contact represents a chat peer known to the bot.
type Contact struct {
	JID       string    `json:"jid"`
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"first_seen"`

	// ReceiveGreetings opts an ordinary contact into the general
	// broadcast audience.
	ReceiveGreetings bool `json:"receive_greetings,omitempty"`
}

// ContactBook is the mutable contact document. An address appears in at
// most one of the two lists; special is layered on top of ordinary and
// never applied to owners.
type ContactBook struct {
	Ordinary []Contact `json:"ordinary"`
	Special  []Contact `json:"special"`
}

// HasSpecial reports whether jid is in the special list.
func (b *ContactBook) HasSpecial(jid string) bool {
	return indexOf(b.Special, jid) >= 0
}

// HasOrdinary reports whether jid is in the ordinary list.
func (b *ContactBook) HasOrdinary(jid string) bool {
	return indexOf(b.Ordinary, jid) >= 0
}

// AddOrdinary appends a new ordinary contact. Returns false if the address
// is already present in either list.
func (b *ContactBook) AddOrdinary(c Contact) bool {
	if b.HasOrdinary(c.JID) || b.HasSpecial(c.JID) {
		return false
	}
	b.Ordinary = append(b.Ordinary, c)
	return true
}

// PromoteSpecial moves an address from ordinary to special, or adds it to
// special if it was unknown. Returns false if already special.
func (b *ContactBook) PromoteSpecial(c Contact) bool {
	if b.HasSpecial(c.JID) {
		return false
	}
	if i := indexOf(b.Ordinary, c.JID); i >= 0 {
		if c.Name == "" || c.Name == "Unknown" {
			c.Name = b.Ordinary[i].Name
		}
		if c.FirstSeen.IsZero() {
			c.FirstSeen = b.Ordinary[i].FirstSeen
		}
		b.Ordinary = append(b.Ordinary[:i], b.Ordinary[i+1:]...)
	}
	b.Special = append(b.Special, c)
	return true
}

// DemoteSpecial moves an address from special back to ordinary. Returns
// false if the address was not special.
func (b *ContactBook) DemoteSpecial(jid string) bool {
	i := indexOf(b.Special, jid)
	if i < 0 {
		return false
	}
	c := b.Special[i]
	b.Special = append(b.Special[:i], b.Special[i+1:]...)
	if !b.HasOrdinary(jid) {
		b.Ordinary = append(b.Ordinary, c)
	}
	return true
}

func indexOf(list []Contact, jid string) int {
	for i, c := range list {
		if c.JID == jid {
			return i
		}
	}
	return -1
}

// FormatJID canonicalizes a bare phone number into a direct-chat address.
// Addresses that already carry a server suffix pass through unchanged.
func FormatJID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "@") {
		return id
	}
	return id + "@s.whatsapp.net"
}

// PhonePart returns the local part of a chat address.
func PhonePart(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

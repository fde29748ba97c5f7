package domain

import "testing"

func TestContactBook_AddOrdinary_Dedup(t *testing.T) {
	b := &ContactBook{}

	if !b.AddOrdinary(Contact{JID: "254700000001@s.whatsapp.net"}) {
		t.Fatal("first add should succeed")
	}
	if b.AddOrdinary(Contact{JID: "254700000001@s.whatsapp.net"}) {
		t.Error("duplicate add should fail")
	}
	b.PromoteSpecial(Contact{JID: "254700000002@s.whatsapp.net"})
	if b.AddOrdinary(Contact{JID: "254700000002@s.whatsapp.net"}) {
		t.Error("address already special must not become ordinary")
	}
}

func TestContactBook_PromoteSpecial_MovesAndKeepsName(t *testing.T) {
	b := &ContactBook{}
	b.AddOrdinary(Contact{JID: "254700000001@s.whatsapp.net", Name: "Alice"})

	if !b.PromoteSpecial(Contact{JID: "254700000001@s.whatsapp.net"}) {
		t.Fatal("promotion should succeed")
	}
	if b.HasOrdinary("254700000001@s.whatsapp.net") {
		t.Error("promoted contact must leave the ordinary list")
	}
	if !b.HasSpecial("254700000001@s.whatsapp.net") {
		t.Error("promoted contact must be special")
	}
	if b.Special[0].Name != "Alice" {
		t.Errorf("promotion should keep the known name, got %q", b.Special[0].Name)
	}
	if b.PromoteSpecial(Contact{JID: "254700000001@s.whatsapp.net"}) {
		t.Error("second promotion should report no change")
	}
}

func TestContactBook_DemoteSpecial(t *testing.T) {
	b := &ContactBook{}
	b.PromoteSpecial(Contact{JID: "254700000001@s.whatsapp.net", Name: "Alice"})

	if !b.DemoteSpecial("254700000001@s.whatsapp.net") {
		t.Fatal("demotion should succeed")
	}
	if b.HasSpecial("254700000001@s.whatsapp.net") {
		t.Error("demoted contact must leave the special list")
	}
	if !b.HasOrdinary("254700000001@s.whatsapp.net") {
		t.Error("demoted contact must fall back to ordinary")
	}
	if b.DemoteSpecial("254700000001@s.whatsapp.net") {
		t.Error("demoting a non-special should report no change")
	}
}

func TestFormatJID(t *testing.T) {
	if got := FormatJID("254700000001"); got != "254700000001@s.whatsapp.net" {
		t.Errorf("FormatJID bare number = %q", got)
	}
	if got := FormatJID("254700000001@s.whatsapp.net"); got != "254700000001@s.whatsapp.net" {
		t.Errorf("FormatJID full jid = %q", got)
	}
	if got := FormatJID(" "); got != "" {
		t.Errorf("FormatJID blank = %q", got)
	}
}

func TestPhonePart(t *testing.T) {
	if got := PhonePart("254700000001@s.whatsapp.net"); got != "254700000001" {
		t.Errorf("PhonePart = %q", got)
	}
	if got := PhonePart("254700000001"); got != "254700000001" {
		t.Errorf("PhonePart bare = %q", got)
	}
}

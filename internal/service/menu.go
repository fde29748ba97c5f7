package service

import (
	"fmt"
	"strings"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// menuText renders the command menu caption.
func menuText(pushName, prefix string, st domain.Settings) string {
	onOff := func(b bool) string {
		if b {
			return "✅"
		}
		return "❌"
	}
	night := "☀️ OFF"
	if st.NightMode.Active {
		night = "🌙 ON"
	}

	var sb strings.Builder
	sb.WriteString("🚀 *Z-BOT MULTI-DEVICE V2.0* 🚀\n")
	fmt.Fprintf(&sb, "Hi *%s*! System is active.\n\n", pushName)
	sb.WriteString("*👑 OWNER & ADMIN (Strictly Owner)*\n")
	sb.WriteString("• .kick / .promote — Manage members\n")
	sb.WriteString("• .tagall / .everyone — Mention all\n")
	sb.WriteString("• .bc [msg] — Global broadcast\n")
	sb.WriteString("• .backup — Export database files\n")
	sb.WriteString("• .clear [groups/private] — Wipe logs\n")
	sb.WriteString("• .anticall [on/off] — Block calls\n")
	sb.WriteString("• .autoclean [on/off] — Auto-wipe logs\n")
	sb.WriteString("• .nightmode [on/off] — Group lock\n\n")
	sb.WriteString("*⭐ SPECIAL LIST MANAGEMENT*\n")
	sb.WriteString("• .special @user — Add to special list\n")
	sb.WriteString("• .removespecial @user — Remove user\n")
	sb.WriteString("• .listsp — View special contacts\n")
	sb.WriteString("• .testbroadcast — Manual test run\n\n")
	sb.WriteString("*🤖 ARTIFICIAL INTELLIGENCE*\n")
	sb.WriteString("• .ai [query] — GPT with memory\n")
	sb.WriteString("• .draw [prompt] — AI images\n\n")
	sb.WriteString("*📥 DOWNLOADERS & TOOLS*\n")
	sb.WriteString("• .play [song] — YouTube MP3\n")
	sb.WriteString("• .video [link] — YouTube MP4\n")
	sb.WriteString("• .sticker — Convert media to sticker\n")
	sb.WriteString("• .ping — Check bot response time\n")
	sb.WriteString("• .stats — System & uptime info\n")
	sb.WriteString("• .system — Server RAM & OS info\n\n")
	sb.WriteString("*🛡️ SYSTEM STATUS*\n")
	fmt.Fprintf(&sb, "• Anti-Call: %s\n", onOff(st.AntiCall))
	fmt.Fprintf(&sb, "• Auto-Status: %s\n", onOff(st.AutoStatus))
	fmt.Fprintf(&sb, "• Night Mode: %s\n\n", night)
	fmt.Fprintf(&sb, "_Use the prefix %q before commands._", prefix)
	return sb.String()
}

package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
	"github.com/futurelink/zbot/internal/biz/usecase"
)

// AdminHandler implements the operator command surface: group moderation,
// manual broadcasts, runtime toggles and database maintenance, plus the
// open diagnostics commands (menu, ping, stats, system).
type AdminHandler struct {
	registry    *usecase.RegistryUsecase
	settings    repo.SettingsRepo
	chatLog     repo.ChatLogRepo
	transport   repo.Transport
	broadcaster *Broadcaster
	stats       *Stats
	media       MediaAPI
	prefix      string
	stateDir    string
	loc         *time.Location
	now         func() time.Time
	log         zerolog.Logger
}

// NewAdminHandler creates the operator command handler.
func NewAdminHandler(
	registry *usecase.RegistryUsecase,
	settings repo.SettingsRepo,
	chatLog repo.ChatLogRepo,
	transport repo.Transport,
	broadcaster *Broadcaster,
	stats *Stats,
	media MediaAPI,
	prefix string,
	stateDir string,
	loc *time.Location,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		registry:    registry,
		settings:    settings,
		chatLog:     chatLog,
		transport:   transport,
		broadcaster: broadcaster,
		stats:       stats,
		media:       media,
		prefix:      prefix,
		stateDir:    stateDir,
		loc:         loc,
		now:         time.Now,
		log:         log.With().Str("component", "admin").Logger(),
	}
}

// Register wires the handler's commands into the router.
func (h *AdminHandler) Register(r *Router) {
	r.Register(domain.TierUser, h.Menu, "menu", "help")
	r.Register(domain.TierUser, h.Ping, "ping")
	r.Register(domain.TierUser, h.System, "system")
	r.Register(domain.TierUser, h.Stats, "stats")
	r.Register(domain.TierUser, h.ListSpecial, "listsp")

	r.Register(domain.TierAdmin, h.Kick, "kick")
	r.Register(domain.TierAdmin, h.Promote, "promote")
	r.Register(domain.TierAdmin, h.TagAll, "tagall", "everyone")
	r.Register(domain.TierAdmin, h.Broadcast, "bc")
	r.Register(domain.TierAdmin, h.TestBroadcast, "testbroadcast")
	r.Register(domain.TierAdmin, h.AntiCall, "anticall")
	r.Register(domain.TierAdmin, h.AutoStatus, "autostatus")
	r.Register(domain.TierAdmin, h.AutoClean, "autoclean")
	r.Register(domain.TierAdmin, h.NightMode, "nightmode")
	r.Register(domain.TierAdmin, h.Clear, "clear")
	r.Register(domain.TierAdmin, h.Backup, "backup")
	r.Register(domain.TierAdmin, h.Special, "special")
	r.Register(domain.TierAdmin, h.RemoveSpecial, "removespecial")
}

// Menu sends the command menu, with the bot icon when it can be fetched.
func (h *AdminHandler) Menu(ctx context.Context, req *CommandRequest) error {
	caption := menuText(req.Event.PushName, h.prefix, req.Settings)
	if h.media != nil {
		if icon, err := h.media.MenuIcon(ctx); err == nil {
			return h.transport.SendImage(ctx, req.Event.Chat, icon, caption)
		}
	}
	return h.transport.SendText(ctx, req.Event.Chat, caption)
}

// Ping reports round-trip latency relative to the message timestamp.
func (h *AdminHandler) Ping(ctx context.Context, req *CommandRequest) error {
	elapsed := h.now().Sub(req.Event.Timestamp).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("🏓 Pong! Speed: %dms", elapsed))
}

// System reports host and runtime details.
func (h *AdminHandler) System(ctx context.Context, req *CommandRequest) error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	text := fmt.Sprintf(
		"🖥️ *SYSTEM INFO*\n\n• OS: %s/%s\n• CPUs: %d\n• Goroutines: %d\n• Heap: %.1f MB\n• Go: %s",
		runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), runtime.NumGoroutine(),
		float64(ms.HeapAlloc)/(1<<20), runtime.Version(),
	)
	return h.transport.SendText(ctx, req.Event.Chat, text)
}

// Stats reports uptime and traffic counters.
func (h *AdminHandler) Stats(ctx context.Context, req *CommandRequest) error {
	specials, err := h.registry.ListSpecial(ctx)
	if err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	text := fmt.Sprintf(
		"📊 *BOT STATS*\n\n• Uptime: %s\n• Messages handled: %d\n• Special contacts: %d",
		h.stats.Uptime(), h.stats.Messages(), len(specials),
	)
	return h.transport.SendText(ctx, req.Event.Chat, text)
}

// ListSpecial renders the special contact list.
func (h *AdminHandler) ListSpecial(ctx context.Context, req *CommandRequest) error {
	specials, err := h.registry.ListSpecial(ctx)
	if err != nil {
		return fmt.Errorf("failed to load contacts: %w", err)
	}
	if len(specials) == 0 {
		return h.transport.SendText(ctx, req.Event.Chat, "⭐ Special list is empty.")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "⭐ *SPECIAL CONTACTS (%d)*\n\n", len(specials))
	for i, c := range specials {
		name := c.Name
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. %s — %s\n", i+1, name, domain.PhonePart(c.JID))
	}
	return h.transport.SendText(ctx, req.Event.Chat, sb.String())
}

// Kick removes the tagged members from the group.
func (h *AdminHandler) Kick(ctx context.Context, req *CommandRequest) error {
	return h.membership(ctx, req, repo.ParticipantRemove, "removed")
}

// Promote makes the tagged members group admins.
func (h *AdminHandler) Promote(ctx context.Context, req *CommandRequest) error {
	return h.membership(ctx, req, repo.ParticipantPromote, "promoted")
}

func (h *AdminHandler) membership(ctx context.Context, req *CommandRequest, action repo.ParticipantAction, verb string) error {
	if req.Event.Kind != domain.ChatKindGroup {
		return fmt.Errorf("this command works in groups only")
	}
	targets := targetsFromArgs(req.Args)
	if len(targets) == 0 {
		return fmt.Errorf("tag the members first, e.g. %s%s @user", h.prefix, req.Command)
	}
	if err := h.transport.UpdateParticipants(ctx, req.Event.Chat, targets, action); err != nil {
		return fmt.Errorf("failed to update members: %w", err)
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("✅ %d member(s) %s.", len(targets), verb))
}

// TagAll mentions every group member.
func (h *AdminHandler) TagAll(ctx context.Context, req *CommandRequest) error {
	if req.Event.Kind != domain.ChatKindGroup {
		return fmt.Errorf("this command works in groups only")
	}
	info, err := h.transport.GroupMetadata(ctx, req.Event.Chat)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	note := strings.Join(req.Args, " ")
	if note == "" {
		note = "📢 Attention everyone!"
	}
	var sb strings.Builder
	sb.WriteString(note)
	sb.WriteString("\n\n")
	for _, p := range info.Participants {
		fmt.Fprintf(&sb, "@%s ", domain.PhonePart(p))
	}
	return h.transport.SendTextMentions(ctx, req.Event.Chat, strings.TrimSpace(sb.String()), info.Participants)
}

// Broadcast queues a manual campaign to the opt-in audience.
func (h *AdminHandler) Broadcast(ctx context.Context, req *CommandRequest) error {
	text := strings.Join(req.Args, " ")
	if text == "" {
		return fmt.Errorf("usage: %sbc <message>", h.prefix)
	}
	job := domain.BroadcastJob{
		Name:     "manual-broadcast",
		Audience: domain.AudienceGeneral,
		Message:  domain.StaticMessage(text),
	}
	go func() {
		if err := h.broadcaster.Run(context.Background(), job); err != nil {
			h.log.Error().Err(err).Msg("manual broadcast failed")
		}
	}()
	return h.transport.SendText(ctx, req.Event.Chat, "📢 Broadcast queued.")
}

// TestBroadcast runs an immediate dry campaign against the special list.
func (h *AdminHandler) TestBroadcast(ctx context.Context, req *CommandRequest) error {
	job := domain.BroadcastJob{
		Name:     "test-broadcast",
		Audience: domain.AudienceSpecial,
		Message:  domain.StaticMessage("🔧 Test broadcast — please ignore."),
	}
	go func() {
		if err := h.broadcaster.Run(context.Background(), job); err != nil {
			h.log.Error().Err(err).Msg("test broadcast failed")
		}
	}()
	return h.transport.SendText(ctx, req.Event.Chat, "🔧 Test broadcast started.")
}

// AntiCall toggles automatic call rejection.
func (h *AdminHandler) AntiCall(ctx context.Context, req *CommandRequest) error {
	return h.toggle(ctx, req, "Anti-call", func(st *domain.Settings, on bool) { st.AntiCall = on })
}

// AutoStatus toggles status media archiving.
func (h *AdminHandler) AutoStatus(ctx context.Context, req *CommandRequest) error {
	return h.toggle(ctx, req, "Auto-status", func(st *domain.Settings, on bool) { st.AutoStatus = on })
}

// AutoClean toggles the periodic group-log purge.
func (h *AdminHandler) AutoClean(ctx context.Context, req *CommandRequest) error {
	return h.toggle(ctx, req, "Auto-clean", func(st *domain.Settings, on bool) { st.AutoClean = on })
}

// NightMode toggles the quiet window. In a group it also locks or unlocks
// the group to admins.
func (h *AdminHandler) NightMode(ctx context.Context, req *CommandRequest) error {
	on, err := parseToggle(req.Args)
	if err != nil {
		return err
	}
	st, err := h.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	st.NightMode.Active = on
	if len(req.Args) >= 3 {
		st.NightMode.Start = req.Args[1]
		st.NightMode.End = req.Args[2]
	}
	if err := h.settings.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if req.Event.Kind == domain.ChatKindGroup {
		if err := h.transport.SetGroupAnnounce(ctx, req.Event.Chat, on); err != nil {
			h.log.Error().Err(err).Str("chat", req.Event.Chat).Msg("group lock failed")
		}
	}
	state := "disabled ☀️"
	if on {
		state = fmt.Sprintf("enabled 🌙 (%s–%s)", st.NightMode.Start, st.NightMode.End)
	}
	return h.transport.SendText(ctx, req.Event.Chat, "✅ Night mode "+state)
}

// Clear wipes one section of the chat log.
func (h *AdminHandler) Clear(ctx context.Context, req *CommandRequest) error {
	if len(req.Args) == 0 {
		return fmt.Errorf("usage: %sclear groups|private", h.prefix)
	}
	var kind domain.ChatKind
	switch strings.ToLower(req.Args[0]) {
	case "groups", "group":
		kind = domain.ChatKindGroup
	case "private", "dm":
		kind = domain.ChatKindPrivate
	default:
		return fmt.Errorf("usage: %sclear groups|private", h.prefix)
	}
	if err := h.chatLog.Clear(ctx, kind); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("🧹 Cleared %s logs.", req.Args[0]))
}

// Backup sends every state file to the requesting chat as documents.
func (h *AdminHandler) Backup(ctx context.Context, req *CommandRequest) error {
	entries, err := os.ReadDir(h.stateDir)
	if err != nil {
		return fmt.Errorf("failed to read state dir: %w", err)
	}
	sent := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != ".json" && ext != ".ndjson" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(h.stateDir, name))
		if err != nil {
			h.log.Error().Err(err).Str("file", name).Msg("backup read failed")
			continue
		}
		if err := h.transport.SendDocument(ctx, req.Event.Chat, data, name, "application/json", ""); err != nil {
			h.log.Error().Err(err).Str("file", name).Msg("backup send failed")
			continue
		}
		sent++
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("💾 Backup complete: %d file(s) sent.", sent))
}

// Special force-adds a contact to the special list, bypassing quotas.
func (h *AdminHandler) Special(ctx context.Context, req *CommandRequest) error {
	targets := targetsFromArgs(req.Args)
	if len(targets) == 0 {
		return fmt.Errorf("usage: %sspecial @user", h.prefix)
	}
	for _, jid := range targets {
		if err := h.registry.SetSpecial(ctx, jid, ""); err != nil {
			return fmt.Errorf("failed to add %s: %w", domain.PhonePart(jid), err)
		}
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("⭐ Added %d contact(s) to the special list.", len(targets)))
}

// RemoveSpecial drops a contact from the special list.
func (h *AdminHandler) RemoveSpecial(ctx context.Context, req *CommandRequest) error {
	targets := targetsFromArgs(req.Args)
	if len(targets) == 0 {
		return fmt.Errorf("usage: %sremovespecial @user", h.prefix)
	}
	removed := 0
	for _, jid := range targets {
		ok, err := h.registry.RemoveSpecial(ctx, jid)
		if err != nil {
			return fmt.Errorf("failed to remove %s: %w", domain.PhonePart(jid), err)
		}
		if ok {
			removed++
		}
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("✅ Removed %d contact(s) from the special list.", removed))
}

// toggle is the shared on/off settings flow.
func (h *AdminHandler) toggle(ctx context.Context, req *CommandRequest, label string, apply func(*domain.Settings, bool)) error {
	on, err := parseToggle(req.Args)
	if err != nil {
		return err
	}
	st, err := h.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	apply(&st, on)
	if err := h.settings.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	state := "disabled ❌"
	if on {
		state = "enabled ✅"
	}
	return h.transport.SendText(ctx, req.Event.Chat, fmt.Sprintf("%s %s", label, state))
}

func parseToggle(args []string) (bool, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("specify on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "enable", "true":
		return true, nil
	case "off", "disable", "false":
		return false, nil
	}
	return false, fmt.Errorf("specify on or off")
}

// targetsFromArgs normalizes @mentions and bare numbers into JIDs.
func targetsFromArgs(args []string) []string {
	var out []string
	for _, a := range args {
		a = strings.TrimPrefix(a, "@")
		a = strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, a)
		if a == "" {
			continue
		}
		out = append(out, domain.FormatJID(a))
	}
	return out
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

// CommandRequest carries one parsed command to a handler.
type CommandRequest struct {
	Event     *domain.Event
	Command   string
	Args      []string
	Class     domain.Classification
	GroupName string
	Settings  domain.Settings
}

// HandlerFunc executes one command. A returned error is logged and echoed
// to the chat as a short failure message.
type HandlerFunc func(ctx context.Context, req *CommandRequest) error

// FreeTextFunc inspects non-command messages (e.g. broadcast replies).
type FreeTextFunc func(ctx context.Context, e *domain.Event)

type registration struct {
	tier domain.Tier
	fn   HandlerFunc
}

// Router parses the command prefix and dispatches to the registered
// handler. The registry is a closed name-to-handler map, so privilege
// gating is auditable in one place: admin-tier commands from non-owners
// are silently dropped with no reply and no audit entry.
type Router struct {
	prefix    string
	handlers  map[string]registration
	freeText  []FreeTextFunc
	history   repo.HistoryRepo
	transport repo.Transport
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// NewRouter creates an empty command router.
func NewRouter(prefix string, history repo.HistoryRepo, transport repo.Transport, loc *time.Location, log zerolog.Logger) *Router {
	return &Router{
		prefix:    prefix,
		handlers:  make(map[string]registration),
		history:   history,
		transport: transport,
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("component", "router").Logger(),
	}
}

// Register binds a command name (and aliases) to a handler at a tier.
// The first registration of a name wins, which makes collision precedence
// explicit at wiring time.
func (r *Router) Register(tier domain.Tier, fn HandlerFunc, names ...string) {
	for _, name := range names {
		if _, exists := r.handlers[name]; exists {
			continue
		}
		r.handlers[name] = registration{tier: tier, fn: fn}
	}
}

// RegisterFreeText adds an inspector for non-command messages.
func (r *Router) RegisterFreeText(fn FreeTextFunc) {
	r.freeText = append(r.freeText, fn)
}

// Dispatch routes one gated inbound event.
func (r *Router) Dispatch(ctx context.Context, e *domain.Event, cls domain.Classification, groupName string, st domain.Settings) {
	body := strings.TrimSpace(e.Body)
	if !strings.HasPrefix(body, r.prefix) || body == domain.MediaMarker {
		for _, fn := range r.freeText {
			fn(ctx, e)
		}
		return
	}

	fields := strings.Fields(body[len(r.prefix):])
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])

	reg, ok := r.handlers[name]
	if !ok {
		return
	}
	if reg.tier == domain.TierAdmin && !cls.IsOwner {
		return
	}

	req := &CommandRequest{
		Event:     e,
		Command:   name,
		Args:      fields[1:],
		Class:     cls,
		GroupName: groupName,
		Settings:  st,
	}

	r.track(ctx, req, reg.tier)

	if err := reg.fn(ctx, req); err != nil {
		r.log.Error().Err(err).Str("command", name).Str("chat", e.Chat).Msg("command failed")
		_ = r.transport.SendText(ctx, e.Chat, "❌ "+err.Error())
	}
}

// track appends the audit entry before the command's side effects run.
func (r *Router) track(ctx context.Context, req *CommandRequest, tier domain.Tier) {
	userType := "User"
	if req.Class.IsOwner {
		userType = "Owner"
	}
	destination := domain.PhonePart(req.Event.Sender)
	if req.Event.Kind == domain.ChatKindGroup {
		destination = req.GroupName
		if destination == "" {
			destination = req.Event.Chat
		}
	}

	inv := domain.CommandInvocation{
		Timestamp:   r.now().In(r.loc).Format("02/01/2006, 15:04:05"),
		UserType:    userType,
		Phone:       domain.PhonePart(req.Event.Sender),
		Command:     req.Command,
		Tier:        tier,
		ChatKind:    req.Event.Kind,
		Destination: destination,
	}
	if err := r.history.Append(ctx, inv); err != nil {
		r.log.Error().Err(err).Msg("history append failed")
	}
}

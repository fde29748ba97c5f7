package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
	"github.com/futurelink/zbot/internal/biz/usecase"
)

// eventTimeout bounds the processing of one inbound event, including any
// transport queries it performs.
const eventTimeout = 2 * time.Minute

// IngestService consumes inbound events: it updates the contact registry,
// writes the chat log, applies the flood-guard and night-mode gates and
// hands commands to the router. Each event is isolated: a panic or error in
// one never aborts the rest of the batch.
type IngestService struct {
	registry  *usecase.RegistryUsecase
	guard     *usecase.FloodGuard
	settings  repo.SettingsRepo
	chatLog   repo.ChatLogRepo
	transport repo.Transport
	router    *Router
	status    *StatusHandler
	privacy   *PrivacyHandler
	stats     *Stats
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger

	// Group subjects are cached per origin for the process lifetime to
	// avoid repeated transport lookups.
	groupNames sync.Map
}

// NewIngestService creates the ingestion pipeline.
func NewIngestService(
	registry *usecase.RegistryUsecase,
	guard *usecase.FloodGuard,
	settings repo.SettingsRepo,
	chatLog repo.ChatLogRepo,
	transport repo.Transport,
	router *Router,
	status *StatusHandler,
	privacy *PrivacyHandler,
	stats *Stats,
	loc *time.Location,
	log zerolog.Logger,
) *IngestService {
	return &IngestService{
		registry:  registry,
		guard:     guard,
		settings:  settings,
		chatLog:   chatLog,
		transport: transport,
		router:    router,
		status:    status,
		privacy:   privacy,
		stats:     stats,
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// HandleBatch dispatches every event of a batch concurrently. Fire and
// forget: ordering across batches follows transport arrival order only.
func (s *IngestService) HandleBatch(events []*domain.Event) {
	for _, e := range events {
		if e == nil {
			continue
		}
		ev := e
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Any("panic", r).Str("chat", ev.Chat).Msg("event handler panicked")
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			s.handle(ctx, ev)
		}()
	}
}

func (s *IngestService) handle(ctx context.Context, e *domain.Event) {
	// Outbound messages from the operator only matter for promotion.
	if e.FromMe {
		if e.Kind == domain.ChatKindPrivate && !e.IsStatus() {
			if _, err := s.registry.Promote(ctx, e.Chat, ""); err != nil {
				s.log.Error().Err(err).Str("jid", e.Chat).Msg("promotion failed")
			}
		}
		return
	}

	if e.IsStatus() {
		s.status.Handle(ctx, e)
		return
	}

	cls, err := s.registry.Classify(ctx, e.Sender)
	if err != nil {
		s.log.Error().Err(err).Str("sender", e.Sender).Msg("classification failed")
	}

	if e.Kind == domain.ChatKindPrivate && !cls.IsOwner && !cls.IsSpecial {
		s.registry.RecordInbound(e.Chat, e.PushName)
	}

	groupName := ""
	if e.Kind == domain.ChatKindGroup {
		groupName = s.groupName(ctx, e.Chat)
	}

	s.stats.CountMessage()
	s.logCard(e, cls, groupName)

	entry := domain.ChatLogEntry{
		Kind:      e.Kind,
		Sender:    e.PushName,
		Phone:     domain.PhonePart(e.Sender),
		Message:   e.Body,
		Timestamp: e.Timestamp.UnixMilli(),
	}
	if e.Kind == domain.ChatKindGroup {
		entry.GroupName = groupName
	} else {
		entry.Special = cls.IsSpecial
	}
	if err := s.chatLog.Append(ctx, entry); err != nil {
		s.log.Error().Err(err).Msg("chat log append failed")
	}

	if s.guard.Blocked(e.Sender) {
		s.log.Warn().Str("sender", e.Sender).Msg("flood guard blocked sender")
		return
	}

	st, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("settings load failed")
	}
	if st.NightMode.Contains(s.now().In(s.loc)) && e.Kind == domain.ChatKindGroup && !cls.IsOwner {
		s.log.Debug().Str("chat", e.Chat).Msg("night mode: group event dropped")
		return
	}

	s.router.Dispatch(ctx, e, cls, groupName, st)
	s.privacy.Handle(ctx, e)
}

// groupName resolves and caches the subject of a multi-party origin.
func (s *IngestService) groupName(ctx context.Context, jid string) string {
	if v, ok := s.groupNames.Load(jid); ok {
		return v.(string)
	}
	info, err := s.transport.GroupMetadata(ctx, jid)
	if err != nil || info == nil {
		return "Unknown Group"
	}
	s.groupNames.Store(jid, info.Subject)
	return info.Subject
}

// logCard prints the operator-facing per-message card.
func (s *IngestService) logCard(e *domain.Event, cls domain.Classification, groupName string) {
	ev := s.log.Info().
		Str("from", e.PushName).
		Str("phone", domain.PhonePart(e.Sender)).
		Str("message", e.Body)
	if e.Kind == domain.ChatKindGroup {
		ev = ev.Str("group", groupName)
	}
	if cls.IsOwner {
		ev = ev.Bool("owner", true)
	}
	if cls.IsSpecial {
		ev = ev.Bool("special", true)
	}
	ev.Msg("message received")
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/usecase"
)

type mockSettingsRepo struct {
	settings domain.Settings
}

func (m *mockSettingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	return m.settings, nil
}

func (m *mockSettingsRepo) Save(ctx context.Context, s domain.Settings) error {
	m.settings = s
	return nil
}

type mockChatLog struct {
	entries []domain.ChatLogEntry
}

func (m *mockChatLog) Append(ctx context.Context, e domain.ChatLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockChatLog) All(ctx context.Context) ([]domain.ChatLogEntry, error) {
	return m.entries, nil
}

func (m *mockChatLog) PruneGroups(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *mockChatLog) ExportPrivate(ctx context.Context) (string, int, error) {
	return "", 0, nil
}

func (m *mockChatLog) Clear(ctx context.Context, kind domain.ChatKind) error { return nil }

type ingestFixture struct {
	svc       *IngestService
	transport *mockTransport
	chatLog   *mockChatLog
	settings  *mockSettingsRepo
	handled   *[]string
}

func newIngestFixture(t *testing.T, owners []string) *ingestFixture {
	t.Helper()
	transport := newMockTransport()
	chatLog := &mockChatLog{}
	settings := &mockSettingsRepo{settings: domain.DefaultSettings()}
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	registry := usecase.NewRegistry(contacts, owners, nil, time.UTC, zerolog.Nop())
	guard := usecase.NewFloodGuard(time.Minute, 10)
	stats := NewStats()

	router := NewRouter(".", &mockHistory{}, transport, time.UTC, zerolog.Nop())
	handled := &[]string{}
	router.Register(domain.TierUser, func(ctx context.Context, req *CommandRequest) error {
		*handled = append(*handled, req.Command)
		return nil
	}, "ping")

	status := NewStatusHandler(settings, transport, t.TempDir(), zerolog.Nop())
	privacy := NewPrivacyHandler(transport, "", zerolog.Nop())

	svc := NewIngestService(registry, guard, settings, chatLog, transport, router, status, privacy, stats, time.UTC, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}
	return &ingestFixture{svc: svc, transport: transport, chatLog: chatLog, settings: settings, handled: handled}
}

func inboundEvent(body string) *domain.Event {
	return &domain.Event{
		ID:        "msg-1",
		Chat:      "254700000009@s.whatsapp.net",
		Sender:    "254700000009@s.whatsapp.net",
		PushName:  "Dan",
		Kind:      domain.ChatKindPrivate,
		Body:      body,
		Timestamp: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestIngest_LogsAndDispatches(t *testing.T) {
	f := newIngestFixture(t, nil)

	f.svc.handle(context.Background(), inboundEvent(".ping"))

	if len(f.chatLog.entries) != 1 {
		t.Fatalf("expected 1 chat log entry, got %d", len(f.chatLog.entries))
	}
	entry := f.chatLog.entries[0]
	if entry.Kind != domain.ChatKindPrivate || entry.Phone != "254700000009" || entry.Sender != "Dan" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if len(*f.handled) != 1 {
		t.Errorf("command should reach the router, handled=%v", *f.handled)
	}
}

func TestIngest_FloodGuardStopsDispatchNotLogging(t *testing.T) {
	f := newIngestFixture(t, nil)

	for i := 0; i < 15; i++ {
		f.svc.handle(context.Background(), inboundEvent(".ping"))
	}

	if len(f.chatLog.entries) != 15 {
		t.Errorf("every message should still be logged, got %d", len(f.chatLog.entries))
	}
	if len(*f.handled) != 10 {
		t.Errorf("dispatch should stop at the flood threshold, handled %d", len(*f.handled))
	}
}

func TestIngest_NightModeDropsGroupEvents(t *testing.T) {
	f := newIngestFixture(t, nil)
	f.settings.settings.NightMode = domain.NightMode{Active: true, Start: "22:00", End: "06:00"}
	f.svc.now = func() time.Time {
		return time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	}

	group := inboundEvent(".ping")
	group.Chat = "12345@g.us"
	group.Kind = domain.ChatKindGroup
	f.svc.handle(context.Background(), group)

	if len(f.chatLog.entries) != 1 {
		t.Error("night mode must not stop logging")
	}
	if len(*f.handled) != 0 {
		t.Error("group commands must be dropped at night")
	}

	// Direct chats keep working at night.
	f.svc.handle(context.Background(), inboundEvent(".ping"))
	if len(*f.handled) != 1 {
		t.Error("private commands must pass at night")
	}
}

func TestIngest_NightModeOwnerBypass(t *testing.T) {
	f := newIngestFixture(t, []string{"254700000009"})
	f.settings.settings.NightMode = domain.NightMode{Active: true, Start: "22:00", End: "06:00"}
	f.svc.now = func() time.Time {
		return time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	}

	group := inboundEvent(".ping")
	group.Chat = "12345@g.us"
	group.Kind = domain.ChatKindGroup
	f.svc.handle(context.Background(), group)

	if len(*f.handled) != 1 {
		t.Error("owner must bypass night mode")
	}
}

func TestIngest_GroupEntryCarriesSubject(t *testing.T) {
	f := newIngestFixture(t, nil)

	group := inboundEvent("hello")
	group.Chat = "12345@g.us"
	group.Kind = domain.ChatKindGroup
	f.svc.handle(context.Background(), group)

	if len(f.chatLog.entries) != 1 {
		t.Fatal("expected a log entry")
	}
	// The mock transport returns empty subjects, so the fallback name is
	// irrelevant here; the kind routing is what matters.
	if f.chatLog.entries[0].Kind != domain.ChatKindGroup {
		t.Errorf("entry kind = %q", f.chatLog.entries[0].Kind)
	}
}

func TestIngest_OutboundPrivateTriggersPromotion(t *testing.T) {
	transport := newMockTransport()
	chatLog := &mockChatLog{}
	settings := &mockSettingsRepo{settings: domain.DefaultSettings()}
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	registry := usecase.NewRegistry(contacts, nil, nil, time.UTC, zerolog.Nop())
	router := NewRouter(".", &mockHistory{}, transport, time.UTC, zerolog.Nop())
	status := NewStatusHandler(settings, transport, t.TempDir(), zerolog.Nop())
	privacy := NewPrivacyHandler(transport, "", zerolog.Nop())

	svc := NewIngestService(registry, usecase.NewFloodGuard(time.Minute, 10), settings, chatLog, transport, router, status, privacy, NewStats(), time.UTC, zerolog.Nop())

	out := inboundEvent("hey, saving your number")
	out.FromMe = true
	svc.handle(context.Background(), out)

	if !contacts.book.HasSpecial("254700000009@s.whatsapp.net") {
		t.Error("messaging a new contact should promote it")
	}
	if len(chatLog.entries) != 0 {
		t.Error("own outbound messages must not be logged")
	}
}

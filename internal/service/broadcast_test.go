package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/usecase"
)

type mockContactRepo struct {
	book *domain.ContactBook
}

func (m *mockContactRepo) Book(ctx context.Context) (*domain.ContactBook, error) {
	return m.book, nil
}

func (m *mockContactRepo) SaveBook(ctx context.Context, book *domain.ContactBook) error {
	m.book = book
	return nil
}

func (m *mockContactRepo) SeedSpecial(ctx context.Context) ([]string, error) { return nil, nil }

func (m *mockContactRepo) MirrorSpecial(ctx context.Context, jid string) error { return nil }

func (m *mockContactRepo) ConsumePromotionQuota(ctx context.Context, now time.Time) (bool, error) {
	return true, nil
}

func newTestBroadcaster(t *testing.T, transport *mockTransport, contacts *mockContactRepo) *Broadcaster {
	t.Helper()
	registry := usecase.NewRegistry(contacts, nil, nil, time.UTC, zerolog.Nop())
	return NewBroadcaster(registry, transport, time.Millisecond, time.UTC, zerolog.Nop())
}

func TestBroadcaster_Run_SendsToAudience(t *testing.T) {
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	contacts.book.AddOrdinary(domain.Contact{JID: "a@s.whatsapp.net", ReceiveGreetings: true})
	contacts.book.AddOrdinary(domain.Contact{JID: "b@s.whatsapp.net", ReceiveGreetings: true})
	contacts.book.AddOrdinary(domain.Contact{JID: "opted-out@s.whatsapp.net"})

	transport := newMockTransport()
	b := newTestBroadcaster(t, transport, contacts)

	job := domain.BroadcastJob{
		Name:     "morning-greeting",
		Audience: domain.AudienceGeneral,
		Message:  domain.StaticMessage("Good morning 🙏"),
	}
	require.NoError(t, b.Run(context.Background(), job))

	sent := transport.sent()
	require.Len(t, sent, 2)
	for _, s := range sent {
		assert.Equal(t, "Good morning 🙏", s.Text)
		assert.NotEqual(t, "opted-out@s.whatsapp.net", s.To)
	}
}

func TestBroadcaster_Run_PerTargetFailureIsolated(t *testing.T) {
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	contacts.book.PromoteSpecial(domain.Contact{JID: "a@s.whatsapp.net"})
	contacts.book.PromoteSpecial(domain.Contact{JID: "broken@s.whatsapp.net"})
	contacts.book.PromoteSpecial(domain.Contact{JID: "c@s.whatsapp.net"})

	transport := newMockTransport()
	transport.fail["broken@s.whatsapp.net"] = true
	b := newTestBroadcaster(t, transport, contacts)

	job := domain.BroadcastJob{
		Name:     "special",
		Audience: domain.AudienceSpecial,
		Message:  domain.StaticMessage("hi"),
	}
	require.NoError(t, b.Run(context.Background(), job), "one bad target must not fail the run")
	assert.Len(t, transport.sent(), 2)
}

func TestBroadcaster_Run_SkipsInactiveMessage(t *testing.T) {
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	contacts.book.PromoteSpecial(domain.Contact{JID: "a@s.whatsapp.net"})

	transport := newMockTransport()
	b := newTestBroadcaster(t, transport, contacts)
	b.now = func() time.Time {
		return time.Date(2026, time.March, 10, 7, 0, 0, 0, time.UTC)
	}

	job := domain.BroadcastJob{
		Name:     "new-year-campaign",
		Audience: domain.AudienceSpecial,
		Message:  NewYearMessage,
	}
	require.NoError(t, b.Run(context.Background(), job))
	assert.Empty(t, transport.sent(), "out-of-season campaign must not send")
}

func TestBroadcaster_Run_StopsOnCancel(t *testing.T) {
	contacts := &mockContactRepo{book: &domain.ContactBook{}}
	contacts.book.PromoteSpecial(domain.Contact{JID: "a@s.whatsapp.net"})
	contacts.book.PromoteSpecial(domain.Contact{JID: "b@s.whatsapp.net"})

	transport := newMockTransport()
	registry := usecase.NewRegistry(contacts, nil, nil, time.UTC, zerolog.Nop())
	b := NewBroadcaster(registry, transport, time.Hour, time.UTC, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := domain.BroadcastJob{
		Name:     "special",
		Audience: domain.AudienceSpecial,
		Message:  domain.StaticMessage("hi"),
	}
	err := b.Run(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, transport.sent(), 1, "cancellation lands between sends")
}

func TestNewYearMessage(t *testing.T) {
	cases := []struct {
		name   string
		at     time.Time
		active bool
		want   string
	}{
		{"jan 1 morning", time.Date(2026, time.January, 1, 7, 0, 0, 0, time.UTC), true, "Good morning"},
		{"jan 3 afternoon", time.Date(2026, time.January, 3, 14, 0, 0, 0, time.UTC), true, "Good afternoon"},
		{"jan 5 evening", time.Date(2026, time.January, 5, 20, 0, 0, 0, time.UTC), true, "Good evening"},
		{"jan 6", time.Date(2026, time.January, 6, 7, 0, 0, 0, time.UTC), false, ""},
		{"february", time.Date(2026, time.February, 1, 7, 0, 0, 0, time.UTC), false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := NewYearMessage(tc.at)
			assert.Equal(t, tc.active, ok)
			if tc.active {
				assert.Contains(t, msg, tc.want)
				assert.Contains(t, msg, "2026")
			}
		})
	}
}

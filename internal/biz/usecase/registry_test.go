package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// Mock implementations

type mockContactRepo struct {
	book       *domain.ContactBook
	seed       []string
	mirrored   []string
	quota      *domain.SaveQuota
	quotaDeny  bool
	saveCalls  int
	quotaCalls int
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{
		book:  &domain.ContactBook{},
		quota: &domain.SaveQuota{},
	}
}

func (m *mockContactRepo) Book(ctx context.Context) (*domain.ContactBook, error) {
	return m.book, nil
}

func (m *mockContactRepo) SaveBook(ctx context.Context, book *domain.ContactBook) error {
	m.book = book
	m.saveCalls++
	return nil
}

func (m *mockContactRepo) SeedSpecial(ctx context.Context) ([]string, error) {
	return m.seed, nil
}

func (m *mockContactRepo) MirrorSpecial(ctx context.Context, jid string) error {
	m.mirrored = append(m.mirrored, jid)
	return nil
}

func (m *mockContactRepo) ConsumePromotionQuota(ctx context.Context, now time.Time) (bool, error) {
	m.quotaCalls++
	if m.quotaDeny {
		return false, nil
	}
	return m.quota.Allow(now), nil
}

func newTestRegistry(repo *mockContactRepo, owners, special []string) *RegistryUsecase {
	u := NewRegistry(repo, owners, special, time.UTC, zerolog.Nop())
	u.now = func() time.Time {
		return time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)
	}
	return u
}

func TestRegistry_Classify_Owner(t *testing.T) {
	repo := newMockContactRepo()
	u := newTestRegistry(repo, []string{"254700000001"}, []string{"254700000001"})

	cls, err := u.Classify(context.Background(), "254700000001@s.whatsapp.net")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cls.IsOwner {
		t.Error("expected owner")
	}
	if cls.IsSpecial {
		t.Error("owner must never be special")
	}
}

func TestRegistry_Classify_SpecialSources(t *testing.T) {
	repo := newMockContactRepo()
	repo.seed = []string{"254700000002@s.whatsapp.net"}
	repo.book.PromoteSpecial(domain.Contact{JID: "254700000003@s.whatsapp.net"})
	u := newTestRegistry(repo, nil, []string{"254700000001"})

	for _, jid := range []string{
		"254700000001@s.whatsapp.net", // configured
		"254700000002@s.whatsapp.net", // seed file
		"254700000003@s.whatsapp.net", // contact document
	} {
		cls, err := u.Classify(context.Background(), jid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cls.IsSpecial {
			t.Errorf("%s should be special", jid)
		}
	}

	cls, _ := u.Classify(context.Background(), "254700000009@s.whatsapp.net")
	if cls.IsOwner || cls.IsSpecial {
		t.Error("unknown sender should be ordinary")
	}
}

func TestRegistry_Promote_Succeeds(t *testing.T) {
	repo := newMockContactRepo()
	u := newTestRegistry(repo, nil, nil)

	ok, err := u.Promote(context.Background(), "254700000005@s.whatsapp.net", "Bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("promotion should succeed")
	}
	if !repo.book.HasSpecial("254700000005@s.whatsapp.net") {
		t.Error("contact should be in the special list")
	}
	if len(repo.mirrored) != 1 || repo.mirrored[0] != "254700000005@s.whatsapp.net" {
		t.Errorf("promotion should mirror to the seed list, got %v", repo.mirrored)
	}
}

func TestRegistry_Promote_SkipsOwnerWithoutQuota(t *testing.T) {
	repo := newMockContactRepo()
	u := newTestRegistry(repo, []string{"254700000001"}, nil)

	ok, err := u.Promote(context.Background(), "254700000001@s.whatsapp.net", "")
	if err != nil || ok {
		t.Fatalf("owner promotion should be a no-op, got ok=%v err=%v", ok, err)
	}
	if repo.quotaCalls != 0 {
		t.Error("owner check must run before the quota is consumed")
	}
}

func TestRegistry_Promote_QuotaDenied(t *testing.T) {
	repo := newMockContactRepo()
	repo.quotaDeny = true
	u := newTestRegistry(repo, nil, nil)

	ok, err := u.Promote(context.Background(), "254700000005@s.whatsapp.net", "Bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("promotion must fail when the quota denies")
	}
	if repo.book.HasSpecial("254700000005@s.whatsapp.net") {
		t.Error("denied promotion must not mutate the book")
	}
	if repo.saveCalls != 0 {
		t.Error("denied promotion must not persist anything")
	}
}

func TestRegistry_Promote_AlreadySpecialSkipsQuota(t *testing.T) {
	repo := newMockContactRepo()
	repo.book.PromoteSpecial(domain.Contact{JID: "254700000005@s.whatsapp.net"})
	u := newTestRegistry(repo, nil, nil)

	ok, err := u.Promote(context.Background(), "254700000005@s.whatsapp.net", "")
	if err != nil || ok {
		t.Fatalf("re-promotion should be a no-op, got ok=%v err=%v", ok, err)
	}
	if repo.quotaCalls != 0 {
		t.Error("already-special must not burn quota")
	}
}

func TestRegistry_Audience(t *testing.T) {
	repo := newMockContactRepo()
	repo.book.AddOrdinary(domain.Contact{JID: "a@s.whatsapp.net", ReceiveGreetings: true})
	repo.book.AddOrdinary(domain.Contact{JID: "b@s.whatsapp.net"})
	repo.book.PromoteSpecial(domain.Contact{JID: "c@s.whatsapp.net"})
	u := newTestRegistry(repo, nil, nil)

	general, err := u.Audience(context.Background(), domain.AudienceGeneral)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(general) != 1 || general[0].JID != "a@s.whatsapp.net" {
		t.Errorf("general audience should honor the opt-in flag, got %v", general)
	}

	special, err := u.Audience(context.Background(), domain.AudienceSpecial)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(special) != 1 || special[0].JID != "c@s.whatsapp.net" {
		t.Errorf("special audience mismatch, got %v", special)
	}
}

func TestRegistry_StopDrainsPendingWrites(t *testing.T) {
	repo := newMockContactRepo()
	u := newTestRegistry(repo, nil, nil)
	u.Start(context.Background())

	u.RecordInbound("254700000009@s.whatsapp.net", "Dan")

	// Stop must return even though the context is still live, and must
	// flush the queued write before doing so.
	done := make(chan struct{})
	go func() {
		u.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return with a live context")
	}

	if !repo.book.HasOrdinary("254700000009@s.whatsapp.net") {
		t.Error("queued write should be flushed before Stop returns")
	}
}

func TestRegistry_RecordInbound_MirrorsConfiguredSpecial(t *testing.T) {
	repo := newMockContactRepo()
	u := newTestRegistry(repo, nil, []string{"254700000007"})

	u.record(context.Background(), recordJob{jid: "254700000007@s.whatsapp.net", name: "Carol"})
	if !repo.book.HasSpecial("254700000007@s.whatsapp.net") {
		t.Error("configured special should be mirrored into the document")
	}

	u.record(context.Background(), recordJob{jid: "254700000008@s.whatsapp.net", name: "Dan"})
	if !repo.book.HasOrdinary("254700000008@s.whatsapp.net") {
		t.Error("unknown sender should be recorded as ordinary")
	}
}

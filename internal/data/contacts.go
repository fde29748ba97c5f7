package data

import (
	"context"
	"time"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const (
	contactsKey    = "contacts.json"
	seedSpecialKey = "special_seed.json"
	saveStatsKey   = "save_stats.json"
)

// contactRepo implements the contact repository over the state store.
type contactRepo struct {
	store *Store
}

// NewContactRepo creates a new contact repository.
func NewContactRepo(store *Store) repo.ContactRepo {
	return &contactRepo{store: store}
}

// Book loads the mutable contact document.
func (r *contactRepo) Book(ctx context.Context) (*domain.ContactBook, error) {
	book := &domain.ContactBook{Ordinary: []domain.Contact{}, Special: []domain.Contact{}}
	if err := r.store.Load(contactsKey, book); err != nil {
		return nil, err
	}
	return book, nil
}

// SaveBook persists the contact document.
func (r *contactRepo) SaveBook(ctx context.Context, book *domain.ContactBook) error {
	return r.store.Save(contactsKey, book)
}

// SeedSpecial loads the operator-maintained special list. The seed survives
// a contacts.json reset, mirroring the original config-file list.
func (r *contactRepo) SeedSpecial(ctx context.Context) ([]string, error) {
	seed := []string{}
	if err := r.store.Load(seedSpecialKey, &seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// MirrorSpecial records jid in the seed list if absent.
func (r *contactRepo) MirrorSpecial(ctx context.Context, jid string) error {
	seed, err := r.SeedSpecial(ctx)
	if err != nil {
		return err
	}
	for _, s := range seed {
		if s == jid {
			return nil
		}
	}
	seed = append(seed, jid)
	return r.store.Save(seedSpecialKey, seed)
}

// ConsumePromotionQuota checks and increments the promotion counters as a
// single read-modify-write. Last-writer-wins under concurrent promotions is
// accepted for single-operator traffic.
func (r *contactRepo) ConsumePromotionQuota(ctx context.Context, now time.Time) (bool, error) {
	var quota domain.SaveQuota
	if err := r.store.Load(saveStatsKey, &quota); err != nil {
		return false, err
	}
	if !quota.Allow(now) {
		return false, nil
	}
	if err := r.store.Save(saveStatsKey, &quota); err != nil {
		return false, err
	}
	return true, nil
}

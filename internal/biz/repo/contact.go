package repo

import (
	"context"
	"time"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// ContactRepo is the contact document repository.
type ContactRepo interface {
	// Book loads the mutable contact document.
	Book(ctx context.Context) (*domain.ContactBook, error)

	// SaveBook persists the contact document.
	SaveBook(ctx context.Context, book *domain.ContactBook) error

	// SeedSpecial loads the operator-maintained special list that
	// survives a contact-document reset.
	SeedSpecial(ctx context.Context) ([]string, error)

	// MirrorSpecial records jid in the seed list.
	MirrorSpecial(ctx context.Context, jid string) error

	// ConsumePromotionQuota performs the read-modify-write on the
	// promotion counters, returning whether the promotion may proceed.
	ConsumePromotionQuota(ctx context.Context, now time.Time) (bool, error)
}

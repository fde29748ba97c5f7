package repo

import (
	"context"
	"time"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// ChatLogRepo is the append-only chat log repository.
type ChatLogRepo interface {
	// Append writes one entry to the live log.
	Append(ctx context.Context, e domain.ChatLogEntry) error

	// All returns every entry currently in the live log.
	All(ctx context.Context) ([]domain.ChatLogEntry, error)

	// PruneGroups drops group-kind entries older than cutoff and returns
	// how many were removed. Private-kind entries are never touched.
	PruneGroups(ctx context.Context, cutoff time.Time) (int, error)

	// ExportPrivate snapshots all private-kind entries to a new
	// timestamped backup document, returning its path and entry count.
	// The live log is not cleared.
	ExportPrivate(ctx context.Context) (string, int, error)

	// Clear removes all entries of the given kind from the live log.
	Clear(ctx context.Context, kind domain.ChatKind) error
}

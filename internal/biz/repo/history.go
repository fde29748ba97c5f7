package repo

import (
	"context"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// HistoryRepo is the append-only command audit trail.
type HistoryRepo interface {
	Append(ctx context.Context, inv domain.CommandInvocation) error
}

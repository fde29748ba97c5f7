package data

import (
	"context"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const historyKey = "commands.json"

// historyRepo implements the command audit trail over the state store.
type historyRepo struct {
	store *Store
}

// NewHistoryRepo creates a new command history repository.
func NewHistoryRepo(store *Store) repo.HistoryRepo {
	return &historyRepo{store: store}
}

// Append records one command invocation.
func (r *historyRepo) Append(ctx context.Context, inv domain.CommandInvocation) error {
	history := []domain.CommandInvocation{}
	if err := r.store.Load(historyKey, &history); err != nil {
		return err
	}
	history = append(history, inv)
	return r.store.Save(historyKey, history)
}

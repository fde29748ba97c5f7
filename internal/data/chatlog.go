package data

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const (
	chatLogKey = "chat_logs.ndjson"
	backupDir  = "backups"
)

// chatLogRepo implements the chat log over an NDJSON document in the state
// store. Appends are line-granular; prunes rewrite atomically.
type chatLogRepo struct {
	store *Store
}

// NewChatLogRepo creates a new chat log repository.
func NewChatLogRepo(store *Store) repo.ChatLogRepo {
	return &chatLogRepo{store: store}
}

// Append writes one entry to the live log.
func (r *chatLogRepo) Append(ctx context.Context, e domain.ChatLogEntry) error {
	return r.store.AppendLine(chatLogKey, e)
}

// All returns every entry currently in the live log. Undecodable lines are
// skipped.
func (r *chatLogRepo) All(ctx context.Context) ([]domain.ChatLogEntry, error) {
	var entries []domain.ChatLogEntry
	err := r.store.ReadLines(chatLogKey, func(line []byte) {
		var e domain.ChatLogEntry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PruneGroups drops group-kind entries older than cutoff.
func (r *chatLogRepo) PruneGroups(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := r.All(ctx)
	if err != nil {
		return 0, err
	}

	kept := make([]any, 0, len(entries))
	removed := 0
	for _, e := range entries {
		if e.Expired(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if removed == 0 {
		return 0, nil
	}
	if err := r.store.WriteLines(chatLogKey, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// ExportPrivate snapshots all private-kind entries to a fresh backup
// document. The live log is deliberately left intact.
func (r *chatLogRepo) ExportPrivate(ctx context.Context) (string, int, error) {
	entries, err := r.All(ctx)
	if err != nil {
		return "", 0, err
	}

	private := make([]domain.ChatLogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == domain.ChatKindPrivate {
			private = append(private, e)
		}
	}

	key := filepath.Join(backupDir, fmt.Sprintf("private_backup_%s.json", uuid.NewString()))
	if err := r.store.Save(key, private); err != nil {
		return "", 0, err
	}
	return r.store.Path(key), len(private), nil
}

// Clear removes all entries of the given kind from the live log.
func (r *chatLogRepo) Clear(ctx context.Context, kind domain.ChatKind) error {
	entries, err := r.All(ctx)
	if err != nil {
		return err
	}
	kept := make([]any, 0, len(entries))
	for _, e := range entries {
		if e.Kind != kind {
			kept = append(kept, e)
		}
	}
	return r.store.WriteLines(chatLogKey, kept)
}

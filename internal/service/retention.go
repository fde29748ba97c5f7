package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const (
	pruneInterval  = 15 * time.Minute
	exportInterval = 12 * time.Hour
)

// Retention runs the periodic chat-log maintenance: group entries older
// than the retention window are purged (when auto-clean is on) and the
// private log is snapshotted to a backup document twice a day.
type Retention struct {
	settings repo.SettingsRepo
	chatLog  repo.ChatLogRepo
	log      zerolog.Logger
	done     chan struct{}
}

// NewRetention creates the maintenance loop.
func NewRetention(settings repo.SettingsRepo, chatLog repo.ChatLogRepo, log zerolog.Logger) *Retention {
	return &Retention{
		settings: settings,
		chatLog:  chatLog,
		log:      log.With().Str("component", "retention").Logger(),
		done:     make(chan struct{}),
	}
}

// Start launches the maintenance loop until ctx is cancelled.
func (r *Retention) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		prune := time.NewTicker(pruneInterval)
		export := time.NewTicker(exportInterval)
		defer prune.Stop()
		defer export.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-prune.C:
				r.pruneGroups(ctx)
			case <-export.C:
				r.exportPrivate(ctx)
			}
		}
	}()
}

// Wait blocks until the loop has exited.
func (r *Retention) Wait() {
	<-r.done
}

func (r *Retention) pruneGroups(ctx context.Context) {
	st, err := r.settings.Load(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("settings load failed")
		return
	}
	if !st.AutoClean {
		return
	}
	cutoff := time.Now().Add(-domain.GroupLogMaxAge)
	removed, err := r.chatLog.PruneGroups(ctx, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("group log prune failed")
		return
	}
	if removed > 0 {
		r.log.Info().Int("removed", removed).Msg("group log pruned")
	}
}

func (r *Retention) exportPrivate(ctx context.Context) {
	path, count, err := r.chatLog.ExportPrivate(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("private log export failed")
		return
	}
	r.log.Info().Str("path", path).Int("entries", count).Msg("private log exported")
}

package repo

import (
	"context"

	"github.com/futurelink/zbot/internal/biz/domain"
)

// SettingsRepo is the settings document repository. Load never fails on a
// corrupt document; it self-heals to defaults.
type SettingsRepo interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
}

package data

import (
	"context"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
)

const settingsKey = "settings.json"

// settingsRepo implements the settings repository over the state store.
type settingsRepo struct {
	store *Store
}

// NewSettingsRepo creates a new settings repository.
func NewSettingsRepo(store *Store) repo.SettingsRepo {
	return &settingsRepo{store: store}
}

// Load reads the settings document, healing to defaults on corruption.
func (r *settingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	s := domain.DefaultSettings()
	if err := r.store.Load(settingsKey, &s); err != nil {
		return domain.DefaultSettings(), err
	}
	return s, nil
}

// Save persists the settings document.
func (r *settingsRepo) Save(ctx context.Context, s domain.Settings) error {
	return r.store.Save(settingsKey, s)
}

package data

import "github.com/futurelink/zbot/internal/biz/repo"

// Repositories contains all state-store repositories.
type Repositories struct {
	Contacts repo.ContactRepo
	Settings repo.SettingsRepo
	ChatLog  repo.ChatLogRepo
	History  repo.HistoryRepo
}

// NewRepositories creates all repositories over one store.
func NewRepositories(store *Store) *Repositories {
	return &Repositories{
		Contacts: NewContactRepo(store),
		Settings: NewSettingsRepo(store),
		ChatLog:  NewChatLogRepo(store),
		History:  NewHistoryRepo(store),
	}
}

package repositories

import (
	"sync"

	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
)

// Manager hands out one Store per guild, creating it on first use. Handlers
// and background jobs for the same guild share a store, and with it its
// cache.
type Manager struct {
	db *gorm.DB

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{
		db:     db,
		stores: make(map[string]*Store),
	}
}

// Store returns the store for the guild, creating it if needed.
func (m *Manager) Store(guildID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if store, ok := m.stores[guildID]; ok {
		return store
	}
	store := New(m.db, guildID)
	m.stores[guildID] = store
	return store
}

// GuildIDs lists every guild that has a stats row, for startup tasks that
// walk all known guilds.
func (m *Manager) GuildIDs() ([]string, error) {
	var ids []string
	err := m.db.Model(&models.Guild{}).Pluck("guild_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

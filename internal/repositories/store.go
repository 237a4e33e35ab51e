package repositories

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/queuebot/queuebot/internal/models"
)

// Store is the guild-scoped repository. Every query it issues is bound to a
// single guild: user IDs are global, so they are only ever used together
// with the guild or queue scope.
//
// Reads go through a per-entity read-through cache of the guild's rows.
// Every write clears the cache for the entity type it touches before it
// returns, so a read issued after a write never observes stale rows. The
// cache is plain invalidate-on-write, not versioned.
type Store struct {
	db      *gorm.DB
	guildID string

	mu          sync.Mutex
	queues      []models.Queue
	members     []models.Member
	displays    []models.Display
	prioritized []models.Prioritized
	whitelisted []models.Whitelisted
	blacklisted []models.Blacklisted
	admins      []models.Admin
	schedules   []models.Schedule

	loaded map[entityKind]bool
}

type entityKind int

const (
	kindQueue entityKind = iota
	kindMember
	kindDisplay
	kindPrioritized
	kindWhitelisted
	kindBlacklisted
	kindAdmin
	kindSchedule
)

// New returns a store bound to one guild, creating the guild stats row if it
// does not exist yet.
func New(db *gorm.DB, guildID string) *Store {
	s := &Store{
		db:      db,
		guildID: guildID,
		loaded:  make(map[entityKind]bool),
	}
	db.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Guild{GuildID: guildID})
	return s
}

// GuildID returns the guild this store is scoped to.
func (s *Store) GuildID() string {
	return s.guildID
}

// DB exposes the underlying handle for transactional service operations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) invalidate(kinds ...entityKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range kinds {
		s.loaded[k] = false
	}
}

// memberOrder is the total ordering of queue members. It is computed from
// the two stored fields at read time and never materialized.
const memberOrder = "priority ASC NULLS LAST, position_key ASC"

// ====================================================================
//                               Reads
// ====================================================================

// Guild returns the guild stats row.
func (s *Store) Guild() (*models.Guild, error) {
	var guild models.Guild
	if err := s.db.Where("guild_id = ?", s.guildID).Take(&guild).Error; err != nil {
		return nil, err
	}
	return &guild, nil
}

// Queues returns all queues of the guild.
func (s *Store) Queues() ([]models.Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[kindQueue] {
		var queues []models.Queue
		if err := s.db.Where("guild_id = ?", s.guildID).Order("name ASC").Find(&queues).Error; err != nil {
			return nil, err
		}
		s.queues = queues
		s.loaded[kindQueue] = true
	}
	return s.queues, nil
}

// Queue returns one queue by ID.
func (s *Store) Queue(queueID uint) (*models.Queue, error) {
	queues, err := s.Queues()
	if err != nil {
		return nil, err
	}
	for i := range queues {
		if queues[i].ID == queueID {
			q := queues[i]
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// QueueByName returns one queue by its guild-unique name.
func (s *Store) QueueByName(name string) (*models.Queue, error) {
	queues, err := s.Queues()
	if err != nil {
		return nil, err
	}
	for i := range queues {
		if queues[i].Name == name {
			q := queues[i]
			return &q, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// Members returns the members of one queue in serving order.
func (s *Store) Members(queueID uint) ([]models.Member, error) {
	members, err := s.allMembers()
	if err != nil {
		return nil, err
	}
	var out []models.Member
	for _, m := range members {
		if m.QueueID == queueID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MembersOfUser returns every membership of one user across the guild's
// queues, in serving order per queue.
func (s *Store) MembersOfUser(userID string) ([]models.Member, error) {
	members, err := s.allMembers()
	if err != nil {
		return nil, err
	}
	var out []models.Member
	for _, m := range members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Member returns one member row by queue and user.
func (s *Store) Member(queueID uint, userID string) (*models.Member, error) {
	members, err := s.Members(queueID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].UserID == userID {
			m := members[i]
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *Store) allMembers() ([]models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[kindMember] {
		var members []models.Member
		if err := s.db.Where("guild_id = ?", s.guildID).Order(memberOrder).Find(&members).Error; err != nil {
			return nil, err
		}
		s.members = members
		s.loaded[kindMember] = true
	}
	return s.members, nil
}

// Displays returns the display bindings of one queue.
func (s *Store) Displays(queueID uint) ([]models.Display, error) {
	displays, err := s.AllDisplays()
	if err != nil {
		return nil, err
	}
	var out []models.Display
	for _, d := range displays {
		if d.QueueID == queueID {
			out = append(out, d)
		}
	}
	return out, nil
}

// AllDisplays returns every display binding of the guild.
func (s *Store) AllDisplays() ([]models.Display, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[kindDisplay] {
		var displays []models.Display
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&displays).Error; err != nil {
			return nil, err
		}
		s.displays = displays
		s.loaded[kindDisplay] = true
	}
	return s.displays, nil
}

// Prioritized returns the priority entries of one queue.
func (s *Store) Prioritized(queueID uint) ([]models.Prioritized, error) {
	s.mu.Lock()
	if !s.loaded[kindPrioritized] {
		var entries []models.Prioritized
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&entries).Error; err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.prioritized = entries
		s.loaded[kindPrioritized] = true
	}
	entries := s.prioritized
	s.mu.Unlock()

	var out []models.Prioritized
	for _, e := range entries {
		if e.QueueID == queueID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Whitelisted returns the allow-list entries of one queue.
func (s *Store) Whitelisted(queueID uint) ([]models.Whitelisted, error) {
	s.mu.Lock()
	if !s.loaded[kindWhitelisted] {
		var entries []models.Whitelisted
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&entries).Error; err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.whitelisted = entries
		s.loaded[kindWhitelisted] = true
	}
	entries := s.whitelisted
	s.mu.Unlock()

	var out []models.Whitelisted
	for _, e := range entries {
		if e.QueueID == queueID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Blacklisted returns the deny-list entries of one queue.
func (s *Store) Blacklisted(queueID uint) ([]models.Blacklisted, error) {
	s.mu.Lock()
	if !s.loaded[kindBlacklisted] {
		var entries []models.Blacklisted
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&entries).Error; err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.blacklisted = entries
		s.loaded[kindBlacklisted] = true
	}
	entries := s.blacklisted
	s.mu.Unlock()

	var out []models.Blacklisted
	for _, e := range entries {
		if e.QueueID == queueID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Admins returns the guild's admin entries.
func (s *Store) Admins() ([]models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[kindAdmin] {
		var admins []models.Admin
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&admins).Error; err != nil {
			return nil, err
		}
		s.admins = admins
		s.loaded[kindAdmin] = true
	}
	return s.admins, nil
}

// Schedules returns the schedules of one queue.
func (s *Store) Schedules(queueID uint) ([]models.Schedule, error) {
	schedules, err := s.AllSchedules()
	if err != nil {
		return nil, err
	}
	var out []models.Schedule
	for _, sch := range schedules {
		if sch.QueueID == queueID {
			out = append(out, sch)
		}
	}
	return out, nil
}

// AllSchedules returns every schedule of the guild.
func (s *Store) AllSchedules() ([]models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[kindSchedule] {
		var schedules []models.Schedule
		if err := s.db.Where("guild_id = ?", s.guildID).Find(&schedules).Error; err != nil {
			return nil, err
		}
		s.schedules = schedules
		s.loaded[kindSchedule] = true
	}
	return s.schedules, nil
}

// ArchivedMember returns the most recent archive row for a (queue, user)
// pair, used for grace-period rejoins.
func (s *Store) ArchivedMember(queueID uint, userID string) (*models.ArchivedMember, error) {
	var archived models.ArchivedMember
	err := s.db.
		Where("queue_id = ? AND user_id = ?", queueID, userID).
		Order("archived_time DESC").
		First(&archived).Error
	if err != nil {
		return nil, err
	}
	return &archived, nil
}

// IncrementGuildStat bumps one guild counter.
func (s *Store) IncrementGuildStat(stat models.GuildStat, by int) error {
	if by == 0 {
		return nil
	}
	err := s.db.Model(&models.Guild{}).
		Where("guild_id = ?", s.guildID).
		UpdateColumn(string(stat), gorm.Expr(fmt.Sprintf("%s + ?", string(stat)), by)).Error
	if err != nil {
		return fmt.Errorf("failed to increment guild stat %s: %w", stat, err)
	}
	return nil
}

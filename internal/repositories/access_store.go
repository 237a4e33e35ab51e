package repositories

import (
	"fmt"

	"github.com/queuebot/queuebot/internal/models"
)

// InsertPrioritized adds a priority entry. Duplicate (queue, subject) pairs
// surface as gorm.ErrDuplicatedKey.
func (s *Store) InsertPrioritized(entry *models.Prioritized) error {
	s.invalidate(kindPrioritized)
	entry.GuildID = s.guildID
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert prioritized: %w", err)
	}
	return nil
}

// UpdatePrioritized saves changed priority entry fields.
func (s *Store) UpdatePrioritized(entry *models.Prioritized) error {
	s.invalidate(kindPrioritized)
	if err := s.db.Save(entry).Error; err != nil {
		return fmt.Errorf("failed to update prioritized: %w", err)
	}
	return nil
}

// DeletePrioritized removes a priority entry.
func (s *Store) DeletePrioritized(entryID uint) error {
	s.invalidate(kindPrioritized)
	if err := s.db.Delete(&models.Prioritized{}, entryID).Error; err != nil {
		return fmt.Errorf("failed to delete prioritized: %w", err)
	}
	return nil
}

// InsertWhitelisted adds an allow-list entry.
func (s *Store) InsertWhitelisted(entry *models.Whitelisted) error {
	s.invalidate(kindWhitelisted)
	entry.GuildID = s.guildID
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert whitelisted: %w", err)
	}
	return nil
}

// DeleteWhitelisted removes an allow-list entry.
func (s *Store) DeleteWhitelisted(entryID uint) error {
	s.invalidate(kindWhitelisted)
	if err := s.db.Delete(&models.Whitelisted{}, entryID).Error; err != nil {
		return fmt.Errorf("failed to delete whitelisted: %w", err)
	}
	return nil
}

// InsertBlacklisted adds a deny-list entry.
func (s *Store) InsertBlacklisted(entry *models.Blacklisted) error {
	s.invalidate(kindBlacklisted)
	entry.GuildID = s.guildID
	if err := s.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to insert blacklisted: %w", err)
	}
	return nil
}

// DeleteBlacklisted removes a deny-list entry.
func (s *Store) DeleteBlacklisted(entryID uint) error {
	s.invalidate(kindBlacklisted)
	if err := s.db.Delete(&models.Blacklisted{}, entryID).Error; err != nil {
		return fmt.Errorf("failed to delete blacklisted: %w", err)
	}
	return nil
}

// InsertAdmin grants bot admin access to a user or role.
func (s *Store) InsertAdmin(admin *models.Admin) error {
	s.invalidate(kindAdmin)
	admin.GuildID = s.guildID
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

// DeleteAdmin revokes bot admin access.
func (s *Store) DeleteAdmin(adminID uint) error {
	s.invalidate(kindAdmin)
	if err := s.db.Delete(&models.Admin{}, adminID).Error; err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	return nil
}

// InsertSchedule adds a cron schedule for a queue.
func (s *Store) InsertSchedule(schedule *models.Schedule) error {
	s.invalidate(kindSchedule)
	schedule.GuildID = s.guildID
	if err := s.db.Create(schedule).Error; err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

// DeleteSchedule removes a cron schedule.
func (s *Store) DeleteSchedule(scheduleID uint) error {
	s.invalidate(kindSchedule)
	if err := s.db.Delete(&models.Schedule{}, scheduleID).Error; err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

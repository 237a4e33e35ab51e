package repositories

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/queuebot/queuebot/internal/models"
)

// InsertQueue creates a queue. A name collision within the guild surfaces as
// gorm.ErrDuplicatedKey.
func (s *Store) InsertQueue(queue *models.Queue) error {
	s.invalidate(kindQueue)
	queue.GuildID = s.guildID
	if err := s.db.Create(queue).Error; err != nil {
		return fmt.Errorf("failed to insert queue: %w", err)
	}
	return s.IncrementGuildStat(models.StatQueuesAdded, 1)
}

// UpdateQueue saves changed queue fields.
func (s *Store) UpdateQueue(queue *models.Queue) error {
	s.invalidate(kindQueue)
	if err := s.db.Save(queue).Error; err != nil {
		return fmt.Errorf("failed to update queue: %w", err)
	}
	return nil
}

// DeleteQueue removes a queue and everything hanging off it: members
// (archived first), displays, access lists, and schedules.
func (s *Store) DeleteQueue(queueID uint, reason models.ArchiveReason) error {
	s.invalidate(kindQueue, kindMember, kindDisplay, kindPrioritized, kindWhitelisted, kindBlacklisted, kindSchedule)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := archiveAndDeleteMembers(tx, s.guildID, queueID, nil, reason); err != nil {
			return err
		}
		for _, model := range []any{
			&models.Display{},
			&models.Prioritized{},
			&models.Whitelisted{},
			&models.Blacklisted{},
			&models.Schedule{},
		} {
			if err := tx.Where("queue_id = ?", queueID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to cascade queue delete: %w", err)
			}
		}
		if err := tx.Delete(&models.Queue{}, queueID).Error; err != nil {
			return fmt.Errorf("failed to delete queue: %w", err)
		}
		return nil
	})
}

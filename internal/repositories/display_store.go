package repositories

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/queuebot/queuebot/internal/models"
)

// InsertDisplay binds a queue to a channel, replacing the last message ID on
// (queue_id, channel_id) conflict.
func (s *Store) InsertDisplay(display *models.Display) error {
	s.invalidate(kindDisplay)
	display.GuildID = s.guildID
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "queue_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_message_id"}),
	}).Create(display).Error
	if err != nil {
		return fmt.Errorf("failed to insert display: %w", err)
	}
	return nil
}

// UpdateDisplayMessage records the ID of the message most recently pushed to
// a display, so the next edit cycle targets the right message.
func (s *Store) UpdateDisplayMessage(displayID uint, messageID string) error {
	s.invalidate(kindDisplay)
	err := s.db.Model(&models.Display{}).
		Where("id = ?", displayID).
		UpdateColumn("last_message_id", messageID).Error
	if err != nil {
		return fmt.Errorf("failed to update display message: %w", err)
	}
	return nil
}

// DeleteDisplay deregisters one display binding.
func (s *Store) DeleteDisplay(displayID uint) error {
	s.invalidate(kindDisplay)
	if err := s.db.Delete(&models.Display{}, displayID).Error; err != nil {
		return fmt.Errorf("failed to delete display: %w", err)
	}
	return nil
}

// DeleteDisplaysByChannel deregisters every display bound to a channel,
// used when the channel itself is deleted or unreachable.
func (s *Store) DeleteDisplaysByChannel(channelID string) error {
	s.invalidate(kindDisplay)
	err := s.db.Where("guild_id = ? AND channel_id = ?", s.guildID, channelID).
		Delete(&models.Display{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete displays for channel: %w", err)
	}
	return nil
}

package models

import "time"

// Display binds a queue to one channel that mirrors its contents, together
// with the ID of the last message pushed there.
type Display struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	GuildID   string `gorm:"index;not null" json:"guild_id"`
	QueueID   uint   `gorm:"uniqueIndex:idx_display_queue_channel;index;not null" json:"queue_id"`
	ChannelID string `gorm:"uniqueIndex:idx_display_queue_channel;not null" json:"channel_id"`

	LastMessageID string `json:"last_message_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Display) TableName() string {
	return "displays"
}

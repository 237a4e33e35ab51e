package models

import "time"

// UpdateType selects how displays of a queue are refreshed.
type UpdateType string

const (
	UpdateTypeEdit    UpdateType = "edit"
	UpdateTypeReplace UpdateType = "replace"
	UpdateTypeNew     UpdateType = "new"
)

// TimestampType selects the Discord timestamp style rendered next to each
// member, or "off" for none.
type TimestampType string

const (
	TimestampOff         TimestampType = "off"
	TimestampDate        TimestampType = "d"
	TimestampTime        TimestampType = "T"
	TimestampDateAndTime TimestampType = "f"
	TimestampRelative    TimestampType = "R"
)

// MemberDisplayType selects whether members render as mentions or plain text.
type MemberDisplayType string

const (
	MemberDisplayMention   MemberDisplayType = "mention"
	MemberDisplayPlaintext MemberDisplayType = "plaintext"
)

// Queue is a named, ordered, capacity- and access-controlled membership list
// scoped to one guild.
type Queue struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"uniqueIndex:idx_queue_guild_name;index;not null" json:"guild_id"`
	Name    string `gorm:"uniqueIndex:idx_queue_guild_name;not null" json:"name"`

	// Size is the capacity limit; nil means unlimited.
	Size                *int              `json:"size"`
	LockToggle          bool              `gorm:"not null;default:false" json:"lock_toggle"`
	ButtonsToggle       bool              `gorm:"not null;default:true" json:"buttons_toggle"`
	InlineToggle        bool              `gorm:"not null;default:false" json:"inline_toggle"`
	NotificationsToggle bool              `gorm:"not null;default:false" json:"notifications_toggle"`
	PullBatchSize       int               `gorm:"not null;default:1" json:"pull_batch_size"`
	GracePeriod         int               `gorm:"not null;default:0" json:"grace_period"` // seconds
	Header              string            `json:"header"`
	Color               string            `json:"color"`
	TimestampType       TimestampType     `gorm:"type:varchar(8);not null;default:'off'" json:"timestamp_type"`
	UpdateType          UpdateType        `gorm:"type:varchar(8);not null;default:'edit'" json:"update_type"`
	MemberDisplayType   MemberDisplayType `gorm:"type:varchar(16);not null;default:'mention'" json:"member_display_type"`

	RoleInQueueID string `json:"role_in_queue_id"`
	RoleOnPullID  string `json:"role_on_pull_id"`
	LogChannelID  string `json:"log_channel_id"`

	// Voice integration: members are sourced from one voice channel and
	// pulled toward another. When set, join/leave buttons are suppressed.
	SourceVoiceChannelID      string `json:"source_voice_channel_id"`
	DestinationVoiceChannelID string `json:"destination_voice_channel_id"`
	AutopullToggle            bool   `gorm:"not null;default:false" json:"autopull_toggle"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Queue) TableName() string {
	return "queues"
}

// HasVoice reports whether the queue is linked to a voice channel pair.
func (q *Queue) HasVoice() bool {
	return q.SourceVoiceChannelID != "" && q.DestinationVoiceChannelID != ""
}

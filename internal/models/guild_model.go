package models

import "time"

// Guild holds per-guild usage counters. A row is created lazily the first
// time a guild is touched.
type Guild struct {
	GuildID string `gorm:"primaryKey" json:"guild_id"`

	CommandsReceived int `gorm:"not null;default:0" json:"commands_received"`
	ButtonsReceived  int `gorm:"not null;default:0" json:"buttons_received"`
	DisplaysSent     int `gorm:"not null;default:0" json:"displays_sent"`
	QueuesAdded      int `gorm:"not null;default:0" json:"queues_added"`
	MembersAdded     int `gorm:"not null;default:0" json:"members_added"`
	ArchivedAdded    int `gorm:"not null;default:0" json:"archived_added"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Guild) TableName() string {
	return "guilds"
}

// GuildStat names a Guild counter column for atomic increments.
type GuildStat string

const (
	StatCommandsReceived GuildStat = "commands_received"
	StatButtonsReceived  GuildStat = "buttons_received"
	StatDisplaysSent     GuildStat = "displays_sent"
	StatQueuesAdded      GuildStat = "queues_added"
	StatMembersAdded     GuildStat = "members_added"
	StatArchivedAdded    GuildStat = "archived_added"
)

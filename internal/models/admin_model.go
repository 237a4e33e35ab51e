package models

// Admin marks a user or role as a bot admin within one guild.
type Admin struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"uniqueIndex:idx_admin_guild_subject;index;not null" json:"guild_id"`

	SubjectID string `gorm:"uniqueIndex:idx_admin_guild_subject;not null" json:"subject_id"`
	IsRole    bool   `gorm:"not null" json:"is_role"`
}

func (Admin) TableName() string {
	return "admins"
}

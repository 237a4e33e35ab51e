package models

// Prioritized grants a priority tier to a user or role within one queue.
// Lower PriorityOrder is served first; members matching several entries take
// the minimum.
type Prioritized struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"uniqueIndex:idx_prioritized_queue_subject;index;not null" json:"queue_id"`

	SubjectID     string `gorm:"uniqueIndex:idx_prioritized_queue_subject;not null" json:"subject_id"`
	IsRole        bool   `gorm:"not null" json:"is_role"`
	PriorityOrder int    `gorm:"not null;default:5" json:"priority_order"`
	Reason        string `json:"reason"`
}

func (Prioritized) TableName() string {
	return "prioritized"
}

// Whitelisted allows a user or role into a queue. A queue with any
// whitelist entries rejects joins from everyone else.
type Whitelisted struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"uniqueIndex:idx_whitelisted_queue_subject;index;not null" json:"queue_id"`

	SubjectID string `gorm:"uniqueIndex:idx_whitelisted_queue_subject;not null" json:"subject_id"`
	IsRole    bool   `gorm:"not null" json:"is_role"`
	Reason    string `json:"reason"`
}

func (Whitelisted) TableName() string {
	return "whitelisted"
}

// Blacklisted blocks a user or role from joining a queue.
type Blacklisted struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"uniqueIndex:idx_blacklisted_queue_subject;index;not null" json:"queue_id"`

	SubjectID string `gorm:"uniqueIndex:idx_blacklisted_queue_subject;not null" json:"subject_id"`
	IsRole    bool   `gorm:"not null" json:"is_role"`
	Reason    string `json:"reason"`
}

func (Blacklisted) TableName() string {
	return "blacklisted"
}

package models

// Member is one user's occupancy of a slot in a queue.
//
// Ordering is computed at read time as (priority ASC NULLS LAST,
// position_key ASC); no rank index is stored.
type Member struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"uniqueIndex:idx_member_queue_user;index;not null" json:"queue_id"`
	UserID  string `gorm:"uniqueIndex:idx_member_queue_user;not null" json:"user_id"`

	Message string `json:"message"`
	// Priority is the rank tier; lower serves first, nil means unranked
	// (ordered after every ranked member).
	Priority *int `json:"priority"`
	// PositionKey is the mutable sortable key. It is reassigned on move and
	// shuffle; JoinTime never changes after insertion.
	PositionKey int64 `gorm:"index;not null" json:"position_key"`
	JoinTime    int64 `gorm:"not null" json:"join_time"` // unix milliseconds
}

func (Member) TableName() string {
	return "members"
}

// ArchiveReason tags why a member row was removed.
type ArchiveReason string

const (
	ArchiveReasonLeft     ArchiveReason = "left"
	ArchiveReasonKicked   ArchiveReason = "kicked"
	ArchiveReasonPulled   ArchiveReason = "pulled"
	ArchiveReasonCleared  ArchiveReason = "cleared"
	ArchiveReasonVanished ArchiveReason = "vanished"
)

// ArchivedMember is the soft-deleted copy of a removed member, kept for
// later accounting and grace-period rejoins.
type ArchivedMember struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"index;not null" json:"queue_id"`
	UserID  string `gorm:"not null" json:"user_id"`

	Message      string        `json:"message"`
	Priority     *int          `json:"priority"`
	PositionKey  int64         `gorm:"not null" json:"position_key"`
	JoinTime     int64         `gorm:"not null" json:"join_time"`
	ArchivedTime int64         `gorm:"not null" json:"archived_time"` // unix milliseconds
	Reason       ArchiveReason `gorm:"type:varchar(16);not null" json:"reason"`
}

func (ArchivedMember) TableName() string {
	return "archived_members"
}

package models

// ScheduleCommand is the queue operation a schedule runs.
type ScheduleCommand string

const (
	ScheduleCommandClear   ScheduleCommand = "clear"
	ScheduleCommandPull    ScheduleCommand = "pull"
	ScheduleCommandShuffle ScheduleCommand = "shuffle"
	ScheduleCommandShow    ScheduleCommand = "show"
)

// Schedule runs a queue command on a cron expression.
type Schedule struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	GuildID string `gorm:"index;not null" json:"guild_id"`
	QueueID uint   `gorm:"uniqueIndex:idx_schedule_queue_cmd_cron;index;not null" json:"queue_id"`

	Command  ScheduleCommand `gorm:"uniqueIndex:idx_schedule_queue_cmd_cron;type:varchar(8);not null" json:"command"`
	Cron     string          `gorm:"uniqueIndex:idx_schedule_queue_cmd_cron;not null" json:"cron"`
	Timezone string          `gorm:"uniqueIndex:idx_schedule_queue_cmd_cron;not null" json:"timezone"`
	Reason   string          `json:"reason"`
}

func (Schedule) TableName() string {
	return "schedules"
}

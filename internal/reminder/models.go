package reminder

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCreated   Status = "created"
	StatusLocalOnly Status = "local_only"
	StatusDenied    Status = "permission_denied"
)

// Reminder is the durable record of a reminder request. It is written before
// the platform is called, so it exists whatever that call returns.
type Reminder struct {
	ReminderID string `gorm:"primaryKey;size:26" json:"reminder_id"` // ULID length

	Pseudonym string `gorm:"type:varchar(64);index" json:"pseudonym"`
	SessionID string `gorm:"type:varchar(36);index" json:"session_id,omitempty"`

	RemindAt      time.Time `gorm:"index;not null" json:"remind_at"`
	TimeZone      string    `gorm:"type:varchar(64);not null" json:"time_zone"`
	ScheduledTime string    `gorm:"type:varchar(19);not null" json:"scheduled_time"` // local wall clock sent to the platform

	Status     Status  `gorm:"type:varchar(24);index;not null" json:"status"`
	AlertToken *string `gorm:"type:varchar(128)" json:"alert_token,omitempty"`
	Error      *string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Reminder) TableName() string { return "reminders" }

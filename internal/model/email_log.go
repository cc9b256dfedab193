package model

import "time"

// EmailLog represents one processed inbound email. A row is written only
// after a reply has been sent; the unique message ID is the sole dedup
// mechanism preventing a second reply to the same email.
type EmailLog struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID   string `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Sender      string `json:"sender" gorm:"type:varchar(255)"`
	Subject     string `json:"subject" gorm:"type:varchar(998)"`
	Body        string `json:"body" gorm:"type:text"`
	AIReply     string `json:"ai_reply" gorm:"type:text"`
	CreatedTime string `json:"created_time" gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for EmailLog
func (EmailLog) TableName() string {
	return "email_logs"
}

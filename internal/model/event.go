package model

import "time"

// Event represents one inbound platform notification. Rows are an audit
// trail and are never deleted; only the row carrying Replied=true for a
// comment ID blocks future reply attempts.
type Event struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID      string  `json:"post_id" gorm:"type:varchar(255);index"`
	CommentID   string  `json:"comment_id" gorm:"type:varchar(255);index"`
	Item        string  `json:"item" gorm:"type:varchar(64)"`
	Message     string  `json:"message" gorm:"type:text"`
	AIReply     *string `json:"ai_reply" gorm:"type:text"`
	CreatedTime string  `json:"created_time" gorm:"type:varchar(64)"`
	RawJSON     string  `json:"raw_json" gorm:"type:text"`
	Replied     bool    `json:"replied" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}

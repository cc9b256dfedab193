package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"social-auto-reply-go/internal/model"
)

// Store owns the events and email_logs tables. Pipelines read and write
// dedup state only through this type, never through gorm directly.
//
// Dedup here is best effort: concurrent requests racing on one identifier
// may both pass HasReplied before either saves. This is accepted for
// human-rate traffic on a single process.
type Store struct {
	db *gorm.DB
}

// New creates a store over an initialized database
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// HasReplied reports whether a reply has already been recorded for the
// given comment ID. Rows with Replied=false do not block a retry.
func (s *Store) HasReplied(commentID string) (bool, error) {
	if commentID == "" {
		return false, nil
	}
	var event model.Event
	result := s.db.Where("comment_id = ? AND replied = ?", commentID, true).First(&event)
	if result.Error == nil {
		return true, nil
	}
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, fmt.Errorf("database error checking replied event: %w", result.Error)
}

// SaveEvent persists a canonical event record. When a row for the same
// comment ID already exists it is updated in place, so a duplicate never
// surfaces a unique-constraint error. An already-replied row is left
// untouched.
func (s *Store) SaveEvent(event *model.Event) error {
	if event.CommentID == "" {
		if err := s.db.Create(event).Error; err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
		return nil
	}

	var existing model.Event
	result := s.db.Where("comment_id = ?", event.CommentID).First(&existing)
	if result.Error == gorm.ErrRecordNotFound {
		if err := s.db.Create(event).Error; err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("database error checking existing event: %w", result.Error)
	}

	if existing.Replied {
		// already handled; keep the successful record as-is
		event.ID = existing.ID
		return nil
	}

	event.ID = existing.ID
	event.CreatedAt = existing.CreatedAt
	if err := s.db.Save(event).Error; err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// ListEvents returns all stored events, most recent first
func (s *Store) ListEvents() ([]model.Event, error) {
	var events []model.Event
	if err := s.db.Order("id DESC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// HasEmailLog reports whether an email with the given message ID has
// already been replied to.
func (s *Store) HasEmailLog(messageID string) (bool, error) {
	var log model.EmailLog
	result := s.db.Where("message_id = ?", messageID).First(&log)
	if result.Error == nil {
		return true, nil
	}
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, fmt.Errorf("database error checking email log: %w", result.Error)
}

// CreateEmailLog records a successfully answered email. A duplicate
// message ID is treated as already handled, not as an error.
func (s *Store) CreateEmailLog(log *model.EmailLog) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoNothing: true,
	}).Create(log)
	if result.Error != nil {
		return fmt.Errorf("failed to create email log: %w", result.Error)
	}
	return nil
}

// ListEmailLogs returns all email logs, most recent first
func (s *Store) ListEmailLogs() ([]model.EmailLog, error) {
	var logs []model.EmailLog
	if err := s.db.Order("id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, nil
}

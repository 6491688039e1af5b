package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationTypeForumReply          = "forum_reply"
	NotificationTypeAssignmentPublished = "assignment_published"
	NotificationTypeSubmissionGraded    = "submission_graded"
)

// Notification is a message targeted at a single portal user.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Type      string            `gorm:"size:64" json:"type"`
	Message   string            `gorm:"type:text" json:"message"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

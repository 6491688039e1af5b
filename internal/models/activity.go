package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActivityAssignmentPublished = "assignment.published"
	ActivityAssignmentArchived  = "assignment.archived"
	ActivitySubmissionGraded    = "submission.graded"
	ActivityClassCreated        = "teaching_class.created"
	ActivityClassStatusChanged  = "teaching_class.status_changed"
	ActivityPostModerated       = "forum_post.moderated"
	ActivityTeacherCreated      = "teacher.created"
)

// ActivityLog records an auditable action taken by a portal user.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  Role              `gorm:"size:16;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

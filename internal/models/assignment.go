package models

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

// AssignmentStatus is the stored lifecycle state of an assignment.
type AssignmentStatus string

const (
	AssignmentDraft     AssignmentStatus = "draft"
	AssignmentPublished AssignmentStatus = "published"
	// AssignmentClosed is never stored; see Assignment.EffectiveStatus.
	AssignmentClosed   AssignmentStatus = "closed"
	AssignmentArchived AssignmentStatus = "archived"
)

var (
	// ErrAssignmentHasNoQuestions is returned when publishing an empty assignment.
	ErrAssignmentHasNoQuestions = errors.New("assignment must contain at least one question before publishing")
	// ErrAssignmentNotOwner is returned when someone other than the creator archives.
	ErrAssignmentNotOwner = errors.New("only the creating teacher can modify this assignment")
	// ErrAssignmentAlreadyArchived is returned on a second archive attempt.
	ErrAssignmentAlreadyArchived = errors.New("assignment is already archived")
	// ErrAssignmentArchived is returned when publishing an archived assignment.
	ErrAssignmentArchived = errors.New("archived assignments cannot be published")
)

const (
	DefaultAssignmentTotalScore = 100
	DefaultMaxAttempts          = 1
)

// Assignment is a set of questions published to one teaching class.
type Assignment struct {
	ID                  uint             `gorm:"primaryKey" json:"id"`
	Title               string           `gorm:"size:200;not null" json:"title"`
	Description         string           `gorm:"type:text" json:"description"`
	TeachingClassID     uint             `gorm:"not null;index" json:"teaching_class_id"`
	TeachingClass       *TeachingClass   `json:"teaching_class,omitempty"`
	CreatedBy           uint             `gorm:"not null;index" json:"created_by"`
	Chapter             string           `gorm:"size:100" json:"chapter"`
	PublishTime         time.Time        `gorm:"not null" json:"publish_time"`
	DueTime             time.Time        `gorm:"not null" json:"due_time"`
	TotalScore          int              `gorm:"not null" json:"total_score"`
	Status              AssignmentStatus `gorm:"size:20;not null;default:draft;index" json:"status"`
	AllowLateSubmission bool             `gorm:"not null;default:false" json:"allow_late_submission"`
	MaxAttempts         int              `gorm:"not null" json:"max_attempts"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	Questions           []Question       `gorm:"constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// IsPublished reports whether the assignment is visible to students at now.
func (a Assignment) IsPublished(now time.Time) bool {
	return a.Status == AssignmentPublished && !now.Before(a.PublishTime)
}

// IsDue reports whether the deadline has passed.
func (a Assignment) IsDue(now time.Time) bool {
	return now.After(a.DueTime)
}

// CanSubmit reports whether submissions are accepted at now.
func (a Assignment) CanSubmit(now time.Time) bool {
	if !a.IsPublished(now) {
		return false
	}
	return !a.IsDue(now) || a.AllowLateSubmission
}

// EffectiveStatus derives the closed state without touching the stored status.
func (a Assignment) EffectiveStatus(now time.Time) AssignmentStatus {
	if a.Status == AssignmentPublished && a.IsDue(now) && !a.AllowLateSubmission {
		return AssignmentClosed
	}
	return a.Status
}

// Publish marks the assignment as published. questionCount is the number of
// questions currently attached.
func (a *Assignment) Publish(questionCount int) error {
	if a.Status == AssignmentArchived {
		return ErrAssignmentArchived
	}
	if questionCount <= 0 {
		return ErrAssignmentHasNoQuestions
	}
	a.Status = AssignmentPublished
	return nil
}

// Archive hides the assignment for good. Drafts may be archived too.
func (a *Assignment) Archive(actorID uint) error {
	if actorID == 0 || a.CreatedBy != actorID {
		return ErrAssignmentNotOwner
	}
	if a.Status == AssignmentArchived {
		return ErrAssignmentAlreadyArchived
	}
	a.Status = AssignmentArchived
	return nil
}

// CanStudentSubmit applies the attempt limit on top of CanSubmit.
// submittedCount counts final submissions only.
func (a Assignment) CanStudentSubmit(now time.Time, submittedCount int64) bool {
	if !a.CanSubmit(now) {
		return false
	}
	if a.MaxAttempts == 0 {
		return true
	}
	return submittedCount < int64(a.MaxAttempts)
}

// QuestionType selects how an answer is checked.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Valid reports whether the question type is known.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionMultipleChoice, QuestionFillBlank,
		QuestionShortAnswer, QuestionEssay, QuestionTrueFalse:
		return true
	default:
		return false
	}
}

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultQuestionScore is the weight of a question created without one.
const DefaultQuestionScore = 10

// Question belongs to an assignment. Options is only meaningful for choice
// questions.
type Question struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	AssignmentID  uint                        `gorm:"not null;index" json:"assignment_id"`
	Content       string                      `gorm:"type:text;not null" json:"content"`
	Type          QuestionType                `gorm:"column:question_type;size:20;not null" json:"question_type"`
	Difficulty    string                      `gorm:"size:10;not null;default:medium" json:"difficulty"`
	Options       datatypes.JSONSlice[string] `gorm:"type:json" json:"options"`
	CorrectAnswer string                      `gorm:"type:text" json:"correct_answer"`
	Explanation   string                      `gorm:"type:text" json:"explanation"`
	Score         int                         `gorm:"not null;default:10" json:"score"`
	Order         int                         `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// IsAutoGradable reports whether the answer can be checked without a teacher.
func (q Question) IsAutoGradable() bool {
	switch q.Type {
	case QuestionShortAnswer, QuestionEssay:
		return false
	default:
		return true
	}
}

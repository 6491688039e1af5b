package models

import (
	"time"

	"gorm.io/datatypes"
)

// Answers maps a question id (decimal string) to the student's answer.
// Multiple choice answers are comma joined.
type Answers map[string]string

// StudentSubmission is one attempt at an assignment. A draft row is upgraded in
// place when the student submits, so IsLate always reflects the creation time.
type StudentSubmission struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	AssignmentID    uint                        `gorm:"not null;index" json:"assignment_id"`
	Assignment      *Assignment                 `json:"assignment,omitempty"`
	StudentID       uint                        `gorm:"not null;index" json:"student_id"`
	Student         *User                       `json:"student,omitempty"`
	Answers         datatypes.JSONType[Answers] `json:"answers"`
	IsSubmitted     bool                        `gorm:"not null;default:false;index" json:"is_submitted"`
	IsLate          bool                        `gorm:"not null;default:false" json:"is_late"`
	Score           *float64                    `json:"score"`
	IsGraded        bool                        `gorm:"not null;default:false" json:"is_graded"`
	TeacherComments string                      `gorm:"type:text" json:"teacher_comments"`
	GradedBy        *uint                       `json:"graded_by"`
	GradedAt        *time.Time                  `json:"graded_at"`
	SubmittedAt     *time.Time                  `json:"submitted_at"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	QuestionScores  []QuestionScore             `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"question_scores,omitempty"`
}

// AnswerFor returns the stored answer of a question, or "" when unanswered.
func (s StudentSubmission) AnswerFor(questionID string) string {
	answers := s.Answers.Data()
	if answers == nil {
		return ""
	}
	return answers[questionID]
}

// IsDraft reports whether the submission has not been finalised yet.
func (s StudentSubmission) IsDraft() bool {
	return !s.IsSubmitted
}

// QuestionScore is the teacher's mark for one question of a submission.
type QuestionScore struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubmissionID   uint      `gorm:"not null;uniqueIndex:idx_question_score_submission_question" json:"submission_id"`
	QuestionID     uint      `gorm:"not null;uniqueIndex:idx_question_score_submission_question" json:"question_id"`
	Score          float64   `gorm:"not null;default:0" json:"score"`
	TeacherComment string    `gorm:"type:text" json:"teacher_comment"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

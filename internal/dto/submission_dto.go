package dto

import (
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// SaveAnswersRequest carries answers keyed by question id.
type SaveAnswersRequest struct {
	Answers map[string]string `json:"answers" validate:"omitempty,dive,keys,numeric,endkeys,max=20000"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint              `json:"id"`
	AssignmentID    uint              `json:"assignment_id"`
	StudentID       uint              `json:"student_id"`
	Student         *UserLite         `json:"student,omitempty"`
	Answers         map[string]string `json:"answers"`
	IsSubmitted     bool              `json:"is_submitted"`
	IsLate          bool              `json:"is_late"`
	Score           *float64          `json:"score"`
	Percentage      *float64          `json:"percentage"`
	Band            string            `json:"band,omitempty"`
	IsGraded        bool              `json:"is_graded"`
	TeacherComments string            `json:"teacher_comments"`
	GradedBy        *uint             `json:"graded_by"`
	GradedAt        *time.Time        `json:"graded_at"`
	SubmittedAt     *time.Time        `json:"submitted_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewSubmissionResponse converts a submission into a DTO. percentage and band
// are supplied by the grading rules.
func NewSubmissionResponse(model models.StudentSubmission, percentage *float64, band string) SubmissionResponse {
	answers := map[string]string(model.Answers.Data())
	if answers == nil {
		answers = map[string]string{}
	}
	response := SubmissionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		StudentID:       model.StudentID,
		Answers:         answers,
		IsSubmitted:     model.IsSubmitted,
		IsLate:          model.IsLate,
		Score:           model.Score,
		Percentage:      percentage,
		Band:            band,
		IsGraded:        model.IsGraded,
		TeacherComments: model.TeacherComments,
		GradedBy:        model.GradedBy,
		GradedAt:        model.GradedAt,
		SubmittedAt:     model.SubmittedAt,
		CreatedAt:       model.CreatedAt,
	}
	if model.Student != nil {
		student := newUserLite(model.Student, model.StudentID)
		response.Student = &student
	}
	return response
}

// TakeAssignmentResponse is what a student needs to answer an assignment.
type TakeAssignmentResponse struct {
	Assignment AssignmentResponse  `json:"assignment"`
	Submission *SubmissionResponse `json:"submission,omitempty"`
}

// StudentResultResponse is a student's view of their latest attempt.
type StudentResultResponse struct {
	Assignment AssignmentResponse  `json:"assignment"`
	Submission *SubmissionResponse `json:"submission"`
	IsDraft    bool                `json:"is_draft"`
}

// TeacherResultResponse summarises every submission of an assignment.
type TeacherResultResponse struct {
	Assignment       AssignmentResponse   `json:"assignment"`
	Submissions      []SubmissionResponse `json:"submissions"`
	TotalStudents    int64                `json:"total_students"`
	SubmittedCount   int                  `json:"submitted_count"`
	GradedCount      int                  `json:"graded_count"`
	PendingCount     int                  `json:"pending_count"`
	UnsubmittedCount int64                `json:"unsubmitted_count"`
}

// QuestionGrade is the teacher's mark for a single question.
type QuestionGrade struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment" validate:"omitempty,max=4000"`
}

// GradeSubmissionRequest grades every question of a submission at once.
// Questions missing from Scores receive zero.
type GradeSubmissionRequest struct {
	Scores          map[string]QuestionGrade `json:"scores" validate:"omitempty,dive"`
	TeacherComments string                   `json:"teacher_comments" validate:"omitempty,max=4000"`
}

// GradingQuestionResponse pairs a question with the student's answer.
type GradingQuestionResponse struct {
	Question       QuestionResponse `json:"question"`
	StudentAnswer  string           `json:"student_answer"`
	Correctness    string           `json:"correctness"`
	Score          *float64         `json:"score"`
	TeacherComment string           `json:"teacher_comment"`
}

// GradingDetailResponse is the teacher's grading sheet for a submission.
type GradingDetailResponse struct {
	Assignment AssignmentResponse        `json:"assignment"`
	Submission SubmissionResponse        `json:"submission"`
	Questions  []GradingQuestionResponse `json:"questions"`
}

// AssignmentResultResponse is returned by the role-dispatched result view.
type AssignmentResultResponse struct {
	Role    models.Role            `json:"role"`
	Student *StudentResultResponse `json:"student,omitempty"`
	Teacher *TeacherResultResponse `json:"teacher,omitempty"`
}

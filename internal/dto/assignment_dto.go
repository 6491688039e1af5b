package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

var acceptedTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

// ParseTime accepts RFC3339 or the minute precision layout sent by
// datetime-local inputs. The latter is interpreted in loc.
func ParseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range acceptedTimeLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// QuestionRequest describes one question of an assignment.
type QuestionRequest struct {
	Content       string   `json:"content" validate:"required,max=10000"`
	Type          string   `json:"question_type" validate:"required,oneof=single_choice multiple_choice fill_blank short_answer essay true_false"`
	Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Options       []string `json:"options" validate:"omitempty,max=26,dive,max=1000"`
	CorrectAnswer string   `json:"correct_answer" validate:"omitempty,max=10000"`
	Explanation   string   `json:"explanation" validate:"omitempty,max=10000"`
	Score         int      `json:"score" validate:"omitempty,gt=0,lte=1000"`
	Order         int      `json:"order" validate:"omitempty,gte=0"`
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title               string            `json:"title" validate:"required,max=200"`
	Description         string            `json:"description" validate:"required"`
	TeachingClassID     uint              `json:"teaching_class_id" validate:"required,gt=0"`
	Chapter             string            `json:"chapter" validate:"omitempty,max=100"`
	PublishTime         string            `json:"publish_time" validate:"required"`
	DueTime             string            `json:"due_time" validate:"required"`
	TotalScore          int               `json:"total_score" validate:"omitempty,gt=0,lte=1000"`
	AllowLateSubmission bool              `json:"allow_late_submission"`
	MaxAttempts         *int              `json:"max_attempts" validate:"omitempty,gte=0"`
	Questions           []QuestionRequest `json:"questions" validate:"omitempty,dive"`
	Action              string            `json:"action" validate:"omitempty,oneof=draft publish"`
}

// AssignmentUpdateRequest describes the payload for updating an assignment.
// Times can only change while the assignment is a draft.
type AssignmentUpdateRequest struct {
	Title               *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description         *string `json:"description" validate:"omitempty"`
	Chapter             *string `json:"chapter" validate:"omitempty,max=100"`
	PublishTime         *string `json:"publish_time"`
	DueTime             *string `json:"due_time"`
	TotalScore          *int    `json:"total_score" validate:"omitempty,gt=0,lte=1000"`
	AllowLateSubmission *bool   `json:"allow_late_submission"`
	MaxAttempts         *int    `json:"max_attempts" validate:"omitempty,gte=0"`
}

// QuestionResponse is a serialized question. Answer fields are omitted for
// students.
type QuestionResponse struct {
	ID            uint                `json:"id"`
	Content       string              `json:"content"`
	Type          models.QuestionType `json:"question_type"`
	Difficulty    string              `json:"difficulty"`
	Options       []string            `json:"options"`
	CorrectAnswer *string             `json:"correct_answer,omitempty"`
	Explanation   *string             `json:"explanation,omitempty"`
	Score         int                 `json:"score"`
	Order         int                 `json:"order"`
}

// NewQuestionResponse converts a question into a DTO.
func NewQuestionResponse(question models.Question, withAnswers bool) QuestionResponse {
	options := []string(question.Options)
	if options == nil {
		options = []string{}
	}
	response := QuestionResponse{
		ID:         question.ID,
		Content:    question.Content,
		Type:       question.Type,
		Difficulty: question.Difficulty,
		Options:    options,
		Score:      question.Score,
		Order:      question.Order,
	}
	if withAnswers {
		answer, explanation := question.CorrectAnswer, question.Explanation
		response.CorrectAnswer = &answer
		response.Explanation = &explanation
	}
	return response
}

// NewQuestionResponseSlice converts questions into DTOs.
func NewQuestionResponseSlice(questions []models.Question, withAnswers bool) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		out = append(out, NewQuestionResponse(question, withAnswers))
	}
	return out
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID                  uint                    `json:"id"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description"`
	TeachingClassID     uint                    `json:"teaching_class_id"`
	TeachingClassName   string                  `json:"teaching_class_name,omitempty"`
	CreatedBy           uint                    `json:"created_by"`
	Chapter             string                  `json:"chapter"`
	PublishTime         time.Time               `json:"publish_time"`
	DueTime             time.Time               `json:"due_time"`
	TotalScore          int                     `json:"total_score"`
	Status              models.AssignmentStatus `json:"status"`
	EffectiveStatus     models.AssignmentStatus `json:"effective_status"`
	AllowLateSubmission bool                    `json:"allow_late_submission"`
	MaxAttempts         int                     `json:"max_attempts"`
	QuestionCount       int                     `json:"question_count"`
	Questions           []QuestionResponse      `json:"questions,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO. Questions are included
// only when includeQuestions is set.
func NewAssignmentResponse(model models.Assignment, now time.Time, includeQuestions, withAnswers bool) AssignmentResponse {
	response := AssignmentResponse{
		ID:                  model.ID,
		Title:               model.Title,
		Description:         model.Description,
		TeachingClassID:     model.TeachingClassID,
		CreatedBy:           model.CreatedBy,
		Chapter:             model.Chapter,
		PublishTime:         model.PublishTime,
		DueTime:             model.DueTime,
		TotalScore:          model.TotalScore,
		Status:              model.Status,
		EffectiveStatus:     model.EffectiveStatus(now),
		AllowLateSubmission: model.AllowLateSubmission,
		MaxAttempts:         model.MaxAttempts,
		QuestionCount:       len(model.Questions),
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
	if model.TeachingClass != nil {
		response.TeachingClassName = model.TeachingClass.Name
	}
	if includeQuestions {
		response.Questions = NewQuestionResponseSlice(model.Questions, withAnswers)
	}
	return response
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment, now time.Time) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment, now, false, false))
	}

	return responses
}

// TeacherAssignmentStats summarises a teacher's assignments.
type TeacherAssignmentStats struct {
	Total          int   `json:"total"`
	Published      int   `json:"published"`
	PendingGrading int64 `json:"pending_grading"`
}

// TeacherAssignmentIndex is the teacher's assignment overview.
type TeacherAssignmentIndex struct {
	Assignments []AssignmentResponse   `json:"assignments"`
	Stats       TeacherAssignmentStats `json:"stats"`
}

// StudentAssignmentIndex buckets a student's assignments by progress.
type StudentAssignmentIndex struct {
	Pending   []AssignmentResponse `json:"pending"`
	Drafts    []AssignmentResponse `json:"drafts"`
	Completed []AssignmentResponse `json:"completed"`
	Overdue   []AssignmentResponse `json:"overdue"`
}

// AssignmentIndexResponse is returned by the role-dispatched listing.
type AssignmentIndexResponse struct {
	Role    models.Role             `json:"role"`
	Teacher *TeacherAssignmentIndex `json:"teacher,omitempty"`
	Student *StudentAssignmentIndex `json:"student,omitempty"`
}

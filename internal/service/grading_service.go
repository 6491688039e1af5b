package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/grading"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/observability"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrSubmissionNotFinal indicates a draft was sent for grading.
	ErrSubmissionNotFinal = errors.New("only submitted work can be graded")
	// ErrScoreExceedsWeight indicates a question score above the question's weight.
	ErrScoreExceedsWeight = errors.New("score exceeds question weight")
)

// GradingService lets the assignment's teacher review and grade submissions.
type GradingService interface {
	Detail(ctx context.Context, actor Actor, assignmentID, submissionID uint) (dto.GradingDetailResponse, error)
	Grade(ctx context.Context, actor Actor, assignmentID, submissionID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error)
}

type gradingService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	notifier    Notifier
	activities  ActivityRecorder
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, notifier Notifier, activities ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) GradingService {
	return &gradingService{
		assignments: assignments,
		submissions: submissions,
		notifier:    notifier,
		activities:  activities,
		validator:   validate,
		tracer:      otel.Tracer("github.com/noah-isme/course-portal-api/internal/service/grading"),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
}

func (s *gradingService) Detail(ctx context.Context, actor Actor, assignmentID, submissionID uint) (dto.GradingDetailResponse, error) {
	assignment, submission, err := s.load(ctx, actor, assignmentID, submissionID)
	if err != nil {
		return dto.GradingDetailResponse{}, err
	}

	current := make(map[uint]models.QuestionScore, len(submission.QuestionScores))
	for _, score := range submission.QuestionScores {
		current[score.QuestionID] = score
	}

	questions := make([]dto.GradingQuestionResponse, 0, len(assignment.Questions))
	for _, question := range assignment.Questions {
		answer := submission.AnswerFor(strconv.FormatUint(uint64(question.ID), 10))
		item := dto.GradingQuestionResponse{
			Question:      dto.NewQuestionResponse(question, true),
			StudentAnswer: answer,
			Correctness:   string(grading.CheckAnswer(question, answer)),
		}
		if score, ok := current[question.ID]; ok {
			value := score.Score
			item.Score = &value
			item.TeacherComment = score.TeacherComment
		}
		questions = append(questions, item)
	}

	return dto.GradingDetailResponse{
		Assignment: dto.NewAssignmentResponse(assignment, s.now(), false, false),
		Submission: scoredSubmission(submission, assignment.TotalScore),
		Questions:  questions,
	}, nil
}

// Grade replaces every question score of the submission and rolls the sum
// into the submission in one transaction. Questions without a score get zero.
func (s *gradingService) Grade(ctx context.Context, actor Actor, assignmentID, submissionID uint, req dto.GradeSubmissionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade")
	span.SetAttributes(
		attribute.Int64("grading.assignment_id", int64(assignmentID)),
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	fail := func(err error, status string) (dto.SubmissionResponse, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return dto.SubmissionResponse{}, err
	}

	if err := s.validator.Struct(req); err != nil {
		return fail(err, "validation_failed")
	}

	assignment, submission, err := s.load(ctx, actor, assignmentID, submissionID)
	if err != nil {
		return fail(err, "lookup_failed")
	}
	if !submission.IsSubmitted {
		return fail(ErrSubmissionNotFinal, "submission_not_final")
	}

	scores, err := questionScores(assignment.Questions, req.Scores)
	if err != nil {
		return fail(err, "invalid_scores")
	}

	graded, err := s.submissions.SaveGrades(ctx, repository.GradeInput{
		SubmissionID:    submission.ID,
		Scores:          scores,
		TeacherComments: strings.TrimSpace(req.TeacherComments),
		GradedBy:        actor.ID,
		GradedAt:        s.now(),
	})
	if err != nil {
		return fail(err, "save_failed")
	}

	observability.Gradings().Inc()
	response := scoredSubmission(graded, assignment.TotalScore)
	if graded.Score != nil {
		span.SetAttributes(attribute.Float64("grading.score", *graded.Score))
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivitySubmissionGraded,
		EntityType: "submission",
		EntityID:   uintPtr(graded.ID),
		Metadata: map[string]interface{}{
			"assignment_id": assignment.ID,
			"student_id":    graded.StudentID,
			"score":         response.Score,
		},
	})
	s.notifyStudent(ctx, assignment, response)

	return response, nil
}

func (s *gradingService) notifyStudent(ctx context.Context, assignment models.Assignment, graded dto.SubmissionResponse) {
	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("Your submission for \"%s\" has been graded", assignment.Title)
	if graded.Score != nil {
		message = fmt.Sprintf("%s: %.1f/%d", message, *graded.Score, assignment.TotalScore)
	}
	if err := s.notifier.Notify(ctx, NotificationMessage{
		UserID:  graded.StudentID,
		Type:    models.NotificationTypeSubmissionGraded,
		Message: message,
		Metadata: map[string]interface{}{
			"assignment_id": assignment.ID,
			"submission_id": graded.ID,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", graded.ID).Msg("failed to notify student about grade")
	}
}

func (s *gradingService) load(ctx context.Context, actor Actor, assignmentID, submissionID uint) (models.Assignment, models.StudentSubmission, error) {
	if actor.Role != models.RoleTeacher {
		return models.Assignment{}, models.StudentSubmission{}, ErrForbidden
	}

	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if isNotFound(err) {
			return models.Assignment{}, models.StudentSubmission{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, models.StudentSubmission{}, err
	}
	if assignment.CreatedBy != actor.ID {
		return models.Assignment{}, models.StudentSubmission{}, ErrForbidden
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if isNotFound(err) {
			return models.Assignment{}, models.StudentSubmission{}, ErrSubmissionNotFound
		}
		return models.Assignment{}, models.StudentSubmission{}, err
	}
	if submission.AssignmentID != assignment.ID {
		return models.Assignment{}, models.StudentSubmission{}, ErrSubmissionNotFound
	}
	return assignment, submission, nil
}

// questionScores turns the request into one score per question of the
// assignment.
func questionScores(questions []models.Question, requested map[string]dto.QuestionGrade) ([]models.QuestionScore, error) {
	byID := make(map[string]models.Question, len(questions))
	for _, question := range questions {
		byID[strconv.FormatUint(uint64(question.ID), 10)] = question
	}

	grades := make(map[uint]dto.QuestionGrade, len(requested))
	for key, grade := range requested {
		question, ok := byID[strings.TrimSpace(key)]
		if !ok {
			return nil, fmt.Errorf("%w: question %s is not part of this assignment", ErrInvalidInput, key)
		}
		if grade.Score < 0 {
			return nil, fmt.Errorf("%w: score for question %s must not be negative", ErrInvalidInput, key)
		}
		if grade.Score > float64(question.Score) {
			return nil, fmt.Errorf("%w: question %s allows at most %d", ErrScoreExceedsWeight, key, question.Score)
		}
		grades[question.ID] = grade
	}

	scores := make([]models.QuestionScore, 0, len(questions))
	for _, question := range questions {
		grade := grades[question.ID]
		scores = append(scores, models.QuestionScore{
			QuestionID:     question.ID,
			Score:          grade.Score,
			TeacherComment: strings.TrimSpace(grade.Comment),
		})
	}
	return scores, nil
}

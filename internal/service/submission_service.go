package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/grading"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/observability"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionClosed indicates the deadline passed or no attempts are left.
	ErrSubmissionClosed = errors.New("assignment no longer accepts submissions")
	// ErrAlreadySubmitted indicates the latest attempt is final and cannot be edited.
	ErrAlreadySubmitted = errors.New("assignment already submitted")
)

const (
	submissionKindDraft  = "draft"
	submissionKindSubmit = "submit"
)

// SubmissionService lets students answer assignments and shows results.
type SubmissionService interface {
	Take(ctx context.Context, actor Actor, assignmentID uint) (dto.TakeAssignmentResponse, error)
	SaveDraft(ctx context.Context, actor Actor, assignmentID uint, req dto.SaveAnswersRequest) (dto.SubmissionResponse, error)
	Submit(ctx context.Context, actor Actor, assignmentID uint, req dto.SaveAnswersRequest) (dto.SubmissionResponse, error)
	Result(ctx context.Context, actor Actor, assignmentID uint) (dto.AssignmentResultResponse, error)
}

type submissionService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	users       repository.UserRepository
	dashboards  DashboardInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. dashboards may be nil.
func NewSubmissionService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, users repository.UserRepository, dashboards DashboardInvalidator, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		assignments: assignments,
		submissions: submissions,
		users:       users,
		dashboards:  dashboards,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Take(ctx context.Context, actor Actor, assignmentID uint) (dto.TakeAssignmentResponse, error) {
	now := s.now()
	assignment, history, err := s.studentAssignment(ctx, actor, assignmentID, now)
	if err != nil {
		return dto.TakeAssignmentResponse{}, err
	}
	if !assignment.CanStudentSubmit(now, grading.CountSubmitted(history)) {
		return dto.TakeAssignmentResponse{}, ErrSubmissionClosed
	}

	response := dto.TakeAssignmentResponse{
		Assignment: dto.NewAssignmentResponse(assignment, now, true, false),
	}
	if latest, ok := grading.LatestSubmission(history); ok {
		saved := dto.NewSubmissionResponse(latest, nil, "")
		response.Submission = &saved
	}
	return response, nil
}

// SaveDraft stores answers without submitting. The draft row is reused until
// it is submitted.
func (s *submissionService) SaveDraft(ctx context.Context, actor Actor, assignmentID uint, req dto.SaveAnswersRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	assignment, history, err := s.studentAssignment(ctx, actor, assignmentID, now)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !assignment.CanStudentSubmit(now, grading.CountSubmitted(history)) {
		return dto.SubmissionResponse{}, ErrSubmissionClosed
	}
	answers, err := filterAnswers(assignment, req.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	latest, ok := grading.LatestSubmission(history)
	if ok && latest.IsSubmitted {
		return dto.SubmissionResponse{}, ErrAlreadySubmitted
	}

	if ok {
		latest.Answers = datatypes.NewJSONType(answers)
		if err := s.submissions.Update(ctx, &latest); err != nil {
			return dto.SubmissionResponse{}, err
		}
	} else {
		latest = models.StudentSubmission{
			AssignmentID: assignment.ID,
			StudentID:    actor.ID,
			Answers:      datatypes.NewJSONType(answers),
			IsLate:       assignment.IsDue(now),
		}
		if err := s.submissions.Create(ctx, &latest); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	invalidateDashboards(ctx, s.dashboards, actor.ID)
	observability.Submissions().WithLabelValues(submissionKindDraft).Inc()
	return dto.NewSubmissionResponse(latest, nil, ""), nil
}

// Submit finalises the student's answers. A pending draft is upgraded in
// place and keeps the lateness recorded when it was created.
func (s *submissionService) Submit(ctx context.Context, actor Actor, assignmentID uint, req dto.SaveAnswersRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionResponse{}, err
	}

	now := s.now()
	assignment, history, err := s.studentAssignment(ctx, actor, assignmentID, now)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !assignment.CanStudentSubmit(now, grading.CountSubmitted(history)) {
		return dto.SubmissionResponse{}, ErrSubmissionClosed
	}
	answers, err := filterAnswers(assignment, req.Answers)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	submittedAt := now
	latest, ok := grading.LatestSubmission(history)
	if ok && latest.IsDraft() {
		if req.Answers != nil {
			latest.Answers = datatypes.NewJSONType(answers)
		}
		latest.IsSubmitted = true
		latest.SubmittedAt = &submittedAt
		if err := s.submissions.Update(ctx, &latest); err != nil {
			return dto.SubmissionResponse{}, err
		}
	} else {
		latest = models.StudentSubmission{
			AssignmentID: assignment.ID,
			StudentID:    actor.ID,
			Answers:      datatypes.NewJSONType(answers),
			IsSubmitted:  true,
			IsLate:       assignment.IsDue(now),
			SubmittedAt:  &submittedAt,
		}
		if err := s.submissions.Create(ctx, &latest); err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	invalidateDashboards(ctx, s.dashboards, actor.ID)
	observability.Submissions().WithLabelValues(submissionKindSubmit).Inc()
	s.logger.Info().
		Uint("assignment_id", assignment.ID).
		Uint("student_id", actor.ID).
		Bool("late", latest.IsLate).
		Msg("assignment submitted")

	return dto.NewSubmissionResponse(latest, nil, ""), nil
}

func (s *submissionService) Result(ctx context.Context, actor Actor, assignmentID uint) (dto.AssignmentResultResponse, error) {
	switch actor.Role {
	case models.RoleStudent:
		result, err := s.studentResult(ctx, actor, assignmentID)
		if err != nil {
			return dto.AssignmentResultResponse{}, err
		}
		return dto.AssignmentResultResponse{Role: actor.Role, Student: &result}, nil
	case models.RoleTeacher:
		result, err := s.teacherResult(ctx, actor, assignmentID)
		if err != nil {
			return dto.AssignmentResultResponse{}, err
		}
		return dto.AssignmentResultResponse{Role: actor.Role, Teacher: &result}, nil
	default:
		return dto.AssignmentResultResponse{}, ErrForbidden
	}
}

func (s *submissionService) studentResult(ctx context.Context, actor Actor, assignmentID uint) (dto.StudentResultResponse, error) {
	now := s.now()
	assignment, history, err := s.studentAssignment(ctx, actor, assignmentID, now)
	if err != nil {
		return dto.StudentResultResponse{}, err
	}

	result := dto.StudentResultResponse{Assignment: dto.NewAssignmentResponse(assignment, now, false, false)}
	latest, ok := grading.LatestSubmission(history)
	if !ok {
		return result, nil
	}
	response := scoredSubmission(latest, assignment.TotalScore)
	result.Submission = &response
	result.IsDraft = latest.IsDraft()
	return result, nil
}

// teacherResult summarises the latest final submission of every student.
func (s *submissionService) teacherResult(ctx context.Context, actor Actor, assignmentID uint) (dto.TeacherResultResponse, error) {
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return dto.TeacherResultResponse{}, err
	}
	if assignment.CreatedBy != actor.ID {
		return dto.TeacherResultResponse{}, ErrForbidden
	}

	all, err := s.submissions.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return dto.TeacherResultResponse{}, err
	}
	byStudent := make(map[uint][]models.StudentSubmission)
	for _, submission := range all {
		if submission.IsSubmitted {
			byStudent[submission.StudentID] = append(byStudent[submission.StudentID], submission)
		}
	}

	latest := make([]models.StudentSubmission, 0, len(byStudent))
	for _, history := range byStudent {
		if submission, ok := grading.LatestSubmission(history); ok {
			latest = append(latest, submission)
		}
	}
	sort.Slice(latest, func(i, j int) bool {
		return latest[i].CreatedAt.After(latest[j].CreatedAt)
	})

	students, err := s.users.ListStudentIDsByClass(ctx, assignment.TeachingClassID)
	if err != nil {
		return dto.TeacherResultResponse{}, err
	}

	result := dto.TeacherResultResponse{
		Assignment:     dto.NewAssignmentResponse(assignment, s.now(), false, false),
		Submissions:    make([]dto.SubmissionResponse, 0, len(latest)),
		TotalStudents:  int64(len(students)),
		SubmittedCount: len(latest),
	}
	for _, submission := range latest {
		if submission.IsGraded {
			result.GradedCount++
		}
		result.Submissions = append(result.Submissions, scoredSubmission(submission, assignment.TotalScore))
	}
	result.PendingCount = result.SubmittedCount - result.GradedCount
	result.UnsubmittedCount = int64(maxInt(int(result.TotalStudents)-result.SubmittedCount, 0))
	return result, nil
}

// studentAssignment loads a published assignment of the student's class with
// the student's submission history for it.
func (s *submissionService) studentAssignment(ctx context.Context, actor Actor, assignmentID uint, now time.Time) (models.Assignment, []models.StudentSubmission, error) {
	if actor.Role != models.RoleStudent {
		return models.Assignment{}, nil, ErrForbidden
	}
	assignment, err := s.loadAssignment(ctx, assignmentID)
	if err != nil {
		return models.Assignment{}, nil, err
	}

	classID, err := studentClassID(ctx, s.users, actor.ID)
	if err != nil {
		return models.Assignment{}, nil, err
	}
	if classID == nil || *classID != assignment.TeachingClassID {
		return models.Assignment{}, nil, ErrForbidden
	}
	if !assignment.IsPublished(now) {
		return models.Assignment{}, nil, ErrAssignmentNotFound
	}

	history, err := s.submissions.ListForStudent(ctx, actor.ID, []uint{assignment.ID})
	if err != nil {
		return models.Assignment{}, nil, err
	}
	return assignment, history, nil
}

func (s *submissionService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	if assignment.Status == models.AssignmentArchived {
		return models.Assignment{}, ErrAssignmentNotFound
	}
	return assignment, nil
}

// filterAnswers trims answers and rejects ids that are not questions of the
// assignment. Empty answers are dropped.
func filterAnswers(assignment models.Assignment, raw map[string]string) (models.Answers, error) {
	known := make(map[string]struct{}, len(assignment.Questions))
	for _, question := range assignment.Questions {
		known[strconv.FormatUint(uint64(question.ID), 10)] = struct{}{}
	}

	answers := make(models.Answers, len(raw))
	for key, value := range raw {
		key = strings.TrimSpace(key)
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("%w: question %s is not part of this assignment", ErrInvalidInput, key)
		}
		if value = strings.TrimSpace(value); value != "" {
			answers[key] = value
		}
	}
	return answers, nil
}

func scoredSubmission(submission models.StudentSubmission, totalScore int) dto.SubmissionResponse {
	var (
		percentage *float64
		band       string
	)
	if submission.IsGraded {
		percentage = grading.Percentage(submission.Score, totalScore)
		if percentage != nil {
			band = string(grading.BandFor(*percentage))
		}
	}
	return dto.NewSubmissionResponse(submission, percentage, band)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/grading"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrQuestionNotFound indicates the question is not part of the assignment.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAssignmentNotEditable indicates the change is not allowed in the current status.
	ErrAssignmentNotEditable = errors.New("assignment can no longer be changed this way")
)

const actionPublish = "publish"

// AssignmentService exposes the assignment lifecycle to teachers and students.
type AssignmentService interface {
	Index(ctx context.Context, actor Actor) (dto.AssignmentIndexResponse, error)
	Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	AddQuestion(ctx context.Context, actor Actor, id uint, req dto.QuestionRequest) (dto.QuestionResponse, error)
	UpdateQuestion(ctx context.Context, actor Actor, id, questionID uint, req dto.QuestionRequest) (dto.QuestionResponse, error)
	DeleteQuestion(ctx context.Context, actor Actor, id, questionID uint) error
	Publish(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Archive(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	classes     repository.TeachingClassRepository
	users       repository.UserRepository
	notifier    Notifier
	activities  ActivityRecorder
	dashboards  DashboardInvalidator
	validator   *validator.Validate
	logger      zerolog.Logger
	location    *time.Location
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service. Times without an
// offset are read in loc. dashboards may be nil.
func NewAssignmentService(assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, classes repository.TeachingClassRepository, users repository.UserRepository, notifier Notifier, activities ActivityRecorder, dashboards DashboardInvalidator, validate *validator.Validate, loc *time.Location, logger zerolog.Logger) AssignmentService {
	if loc == nil {
		loc = time.UTC
	}
	return &assignmentService{
		assignments: assignments,
		submissions: submissions,
		classes:     classes,
		users:       users,
		notifier:    notifier,
		activities:  activities,
		dashboards:  dashboards,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		location:    loc,
		now:         time.Now,
	}
}

func (s *assignmentService) Index(ctx context.Context, actor Actor) (dto.AssignmentIndexResponse, error) {
	switch actor.Role {
	case models.RoleTeacher:
		index, err := s.teacherIndex(ctx, actor.ID)
		if err != nil {
			return dto.AssignmentIndexResponse{}, err
		}
		return dto.AssignmentIndexResponse{Role: actor.Role, Teacher: &index}, nil
	case models.RoleStudent:
		index, err := s.studentIndex(ctx, actor.ID)
		if err != nil {
			return dto.AssignmentIndexResponse{}, err
		}
		return dto.AssignmentIndexResponse{Role: actor.Role, Student: &index}, nil
	default:
		return dto.AssignmentIndexResponse{}, ErrForbidden
	}
}

func (s *assignmentService) teacherIndex(ctx context.Context, teacherID uint) (dto.TeacherAssignmentIndex, error) {
	assignments, err := s.assignments.ListByCreator(ctx, teacherID)
	if err != nil {
		return dto.TeacherAssignmentIndex{}, err
	}

	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}
	counts, err := s.assignments.SubmissionCounts(ctx, ids)
	if err != nil {
		return dto.TeacherAssignmentIndex{}, err
	}

	stats := dto.TeacherAssignmentStats{Total: len(assignments)}
	for _, assignment := range assignments {
		if assignment.Status != models.AssignmentPublished {
			continue
		}
		stats.Published++
		count := counts[assignment.ID]
		stats.PendingGrading += count.Submitted - count.Graded
	}

	return dto.TeacherAssignmentIndex{
		Assignments: dto.NewAssignmentResponseSlice(assignments, s.now()),
		Stats:       stats,
	}, nil
}

func (s *assignmentService) studentIndex(ctx context.Context, studentID uint) (dto.StudentAssignmentIndex, error) {
	index := dto.StudentAssignmentIndex{
		Pending:   []dto.AssignmentResponse{},
		Drafts:    []dto.AssignmentResponse{},
		Completed: []dto.AssignmentResponse{},
		Overdue:   []dto.AssignmentResponse{},
	}

	classID, err := s.studentClass(ctx, studentID)
	if err != nil {
		return index, err
	}
	if classID == nil {
		return index, nil
	}

	now := s.now()
	assignments, err := s.assignments.ListPublishedForClass(ctx, *classID, now)
	if err != nil {
		return index, err
	}

	ids := make([]uint, 0, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
	}
	submissions, err := s.submissions.ListForStudent(ctx, studentID, ids)
	if err != nil {
		return index, err
	}
	byAssignment := make(map[uint][]models.StudentSubmission, len(ids))
	for _, submission := range submissions {
		byAssignment[submission.AssignmentID] = append(byAssignment[submission.AssignmentID], submission)
	}

	for _, assignment := range assignments {
		response := dto.NewAssignmentResponse(assignment, now, false, false)
		latest, ok := grading.LatestSubmission(byAssignment[assignment.ID])
		switch {
		case ok && latest.IsSubmitted:
			index.Completed = append(index.Completed, response)
		case ok:
			index.Drafts = append(index.Drafts, response)
		case !assignment.CanSubmit(now):
			index.Overdue = append(index.Overdue, response)
		default:
			index.Pending = append(index.Pending, response)
		}
	}
	return index, nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if actor.Role != models.RoleTeacher {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, err
	}

	class, err := s.classes.GetByID(ctx, req.TeachingClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrTeachingClassNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	if !class.OwnedBy(actor.ID) {
		return dto.AssignmentResponse{}, ErrForbidden
	}

	publish, due, err := s.parseWindow(req.PublishTime, req.DueTime)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	questions := make([]models.Question, 0, len(req.Questions))
	for i, item := range req.Questions {
		question, err := buildQuestion(item, i+1)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		questions = append(questions, question)
	}

	assignment := models.Assignment{
		Title:               strings.TrimSpace(req.Title),
		Description:         strings.TrimSpace(req.Description),
		TeachingClassID:     class.ID,
		CreatedBy:           actor.ID,
		Chapter:             strings.TrimSpace(req.Chapter),
		PublishTime:         publish,
		DueTime:             due,
		TotalScore:          req.TotalScore,
		Status:              models.AssignmentDraft,
		AllowLateSubmission: req.AllowLateSubmission,
		MaxAttempts:         models.DefaultMaxAttempts,
		Questions:           questions,
	}
	if assignment.TotalScore <= 0 {
		assignment.TotalScore = models.DefaultAssignmentTotalScore
	}
	if req.MaxAttempts != nil {
		assignment.MaxAttempts = *req.MaxAttempts
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}
	assignment.TeachingClass = &class

	if req.Action == actionPublish {
		if err := s.publish(ctx, actor, &assignment, len(assignment.Questions)); err != nil {
			return dto.NewAssignmentResponse(assignment, s.now(), true, true), err
		}
	}

	return dto.NewAssignmentResponse(assignment, s.now(), true, true), nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	now := s.now()

	switch actor.Role {
	case models.RoleAdmin:
		return dto.NewAssignmentResponse(assignment, now, true, true), nil
	case models.RoleTeacher:
		if assignment.CreatedBy != actor.ID {
			return dto.AssignmentResponse{}, ErrForbidden
		}
		return dto.NewAssignmentResponse(assignment, now, true, true), nil
	case models.RoleStudent:
		if err := s.ensureStudentAccess(ctx, actor.ID, assignment, now); err != nil {
			return dto.AssignmentResponse{}, err
		}
		return dto.NewAssignmentResponse(assignment, now, true, false), nil
	default:
		return dto.AssignmentResponse{}, ErrForbidden
	}
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, req dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.Status == models.AssignmentArchived {
		return dto.AssignmentResponse{}, ErrAssignmentNotEditable
	}

	if req.PublishTime != nil || req.DueTime != nil {
		if assignment.Status != models.AssignmentDraft {
			return dto.AssignmentResponse{}, fmt.Errorf("%w: times can only change while the assignment is a draft", ErrAssignmentNotEditable)
		}
		publishRaw := assignment.PublishTime.Format(time.RFC3339)
		dueRaw := assignment.DueTime.Format(time.RFC3339)
		if req.PublishTime != nil {
			publishRaw = *req.PublishTime
		}
		if req.DueTime != nil {
			dueRaw = *req.DueTime
		}
		publish, due, err := s.parseWindow(publishRaw, dueRaw)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.PublishTime = publish
		assignment.DueTime = due
	}

	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		assignment.Description = strings.TrimSpace(*req.Description)
	}
	if req.Chapter != nil {
		assignment.Chapter = strings.TrimSpace(*req.Chapter)
	}
	if req.TotalScore != nil {
		assignment.TotalScore = *req.TotalScore
	}
	if req.AllowLateSubmission != nil {
		assignment.AllowLateSubmission = *req.AllowLateSubmission
	}
	if req.MaxAttempts != nil {
		assignment.MaxAttempts = *req.MaxAttempts
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment, s.now(), true, true), nil
}

func (s *assignmentService) AddQuestion(ctx context.Context, actor Actor, id uint, req dto.QuestionRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if assignment.Status == models.AssignmentArchived {
		return dto.QuestionResponse{}, ErrAssignmentNotEditable
	}

	question, err := buildQuestion(req, len(assignment.Questions)+1)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	question.AssignmentID = assignment.ID

	if err := s.assignments.CreateQuestion(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question, true), nil
}

func (s *assignmentService) UpdateQuestion(ctx context.Context, actor Actor, id, questionID uint, req dto.QuestionRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuestionResponse{}, err
	}

	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if assignment.Status == models.AssignmentArchived {
		return dto.QuestionResponse{}, ErrAssignmentNotEditable
	}

	existing, err := s.assignments.GetQuestion(ctx, assignment.ID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	updated, err := buildQuestion(req, existing.Order)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	updated.ID = existing.ID
	updated.AssignmentID = existing.AssignmentID
	updated.CreatedAt = existing.CreatedAt

	if err := s.assignments.UpdateQuestion(ctx, &updated); err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(updated, true), nil
}

// DeleteQuestion removes a question from a draft. Published assignments keep
// their questions so existing answers and scores stay meaningful.
func (s *assignmentService) DeleteQuestion(ctx context.Context, actor Actor, id, questionID uint) error {
	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return err
	}
	if assignment.Status != models.AssignmentDraft {
		return fmt.Errorf("%w: questions can only be removed from drafts", ErrAssignmentNotEditable)
	}

	if err := s.assignments.DeleteQuestion(ctx, assignment.ID, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return nil
}

func (s *assignmentService) Publish(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.ownedAssignment(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if assignment.Status == models.AssignmentPublished {
		return dto.NewAssignmentResponse(assignment, s.now(), true, true), nil
	}

	count, err := s.assignments.CountQuestions(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.publish(ctx, actor, &assignment, int(count)); err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(assignment, s.now(), true, true), nil
}

// publish flips the stored status, then informs the class. Notification
// failures do not undo the publication.
func (s *assignmentService) publish(ctx context.Context, actor Actor, assignment *models.Assignment, questionCount int) error {
	if err := assignment.Publish(questionCount); err != nil {
		return err
	}
	if err := s.assignments.UpdateStatus(ctx, assignment.ID, assignment.Status); err != nil {
		return err
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivityAssignmentPublished,
		EntityType: "assignment",
		EntityID:   uintPtr(assignment.ID),
		Metadata:   map[string]interface{}{"title": assignment.Title, "questions": questionCount},
	})

	if s.notifier == nil && s.dashboards == nil {
		return nil
	}
	studentIDs, err := s.users.ListStudentIDsByClass(ctx, assignment.TeachingClassID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to list students to notify")
		return nil
	}
	invalidateDashboards(ctx, s.dashboards, studentIDs...)
	if s.notifier == nil {
		return nil
	}
	messages := make([]NotificationMessage, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		messages = append(messages, NotificationMessage{
			UserID:   studentID,
			Type:     models.NotificationTypeAssignmentPublished,
			Message:  fmt.Sprintf("New assignment \"%s\" is due %s", assignment.Title, assignment.DueTime.In(s.location).Format("2006-01-02 15:04")),
			Metadata: map[string]interface{}{"assignment_id": assignment.ID},
		})
	}
	if err := s.notifier.Notify(ctx, messages...); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to notify students")
	}
	return nil
}

func (s *assignmentService) Archive(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	if actor.Role != models.RoleTeacher {
		return dto.AssignmentResponse{}, ErrForbidden
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	previous := assignment.Status
	if err := assignment.Archive(actor.ID); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.assignments.UpdateStatus(ctx, assignment.ID, assignment.Status); err != nil {
		return dto.AssignmentResponse{}, err
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivityAssignmentArchived,
		EntityType: "assignment",
		EntityID:   uintPtr(assignment.ID),
		Metadata:   map[string]interface{}{"title": assignment.Title, "previous_status": string(previous)},
	})

	if previous == models.AssignmentPublished && s.dashboards != nil {
		studentIDs, err := s.users.ListStudentIDsByClass(ctx, assignment.TeachingClassID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to list students for dashboard refresh")
		} else {
			invalidateDashboards(ctx, s.dashboards, studentIDs...)
		}
	}

	return dto.NewAssignmentResponse(assignment, s.now(), true, true), nil
}

func (s *assignmentService) parseWindow(publishRaw, dueRaw string) (time.Time, time.Time, error) {
	publish, err := dto.ParseTime(publishRaw, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: publish_time: %v", ErrInvalidInput, err)
	}
	due, err := dto.ParseTime(dueRaw, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due_time: %v", ErrInvalidInput, err)
	}
	if !due.After(publish) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due_time must be after publish_time", ErrInvalidInput)
	}
	return publish.UTC(), due.UTC(), nil
}

func (s *assignmentService) load(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *assignmentService) ownedAssignment(ctx context.Context, actor Actor, id uint) (models.Assignment, error) {
	if actor.Role != models.RoleTeacher {
		return models.Assignment{}, ErrForbidden
	}
	assignment, err := s.load(ctx, id)
	if err != nil {
		return models.Assignment{}, err
	}
	if assignment.CreatedBy != actor.ID {
		return models.Assignment{}, models.ErrAssignmentNotOwner
	}
	return assignment, nil
}

// ensureStudentAccess hides unpublished assignments and other classes' work.
func (s *assignmentService) ensureStudentAccess(ctx context.Context, studentID uint, assignment models.Assignment, now time.Time) error {
	classID, err := s.studentClass(ctx, studentID)
	if err != nil {
		return err
	}
	if classID == nil || *classID != assignment.TeachingClassID {
		return ErrForbidden
	}
	if !assignment.IsPublished(now) {
		return ErrAssignmentNotFound
	}
	return nil
}

func (s *assignmentService) studentClass(ctx context.Context, studentID uint) (*uint, error) {
	return studentClassID(ctx, s.users, studentID)
}

func studentClassID(ctx context.Context, users repository.UserRepository, studentID uint) (*uint, error) {
	user, err := users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.StudentProfile == nil {
		return nil, nil
	}
	return user.StudentProfile.TeachingClassID, nil
}

func buildQuestion(req dto.QuestionRequest, defaultOrder int) (models.Question, error) {
	questionType := models.QuestionType(req.Type)
	if !questionType.Valid() {
		return models.Question{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, req.Type)
	}

	options := make([]string, 0, len(req.Options))
	for _, option := range req.Options {
		if trimmed := strings.TrimSpace(option); trimmed != "" {
			options = append(options, trimmed)
		}
	}

	question := models.Question{
		Content:       strings.TrimSpace(req.Content),
		Type:          questionType,
		Difficulty:    req.Difficulty,
		Options:       datatypes.JSONSlice[string](options),
		CorrectAnswer: strings.TrimSpace(req.CorrectAnswer),
		Explanation:   strings.TrimSpace(req.Explanation),
		Score:         req.Score,
		Order:         req.Order,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if question.Score <= 0 {
		question.Score = models.DefaultQuestionScore
	}
	if question.Order <= 0 {
		question.Order = defaultOrder
	}

	switch questionType {
	case models.QuestionSingleChoice, models.QuestionMultipleChoice:
		if len(options) < 2 {
			return models.Question{}, fmt.Errorf("%w: choice questions need at least two options", ErrInvalidInput)
		}
	case models.QuestionTrueFalse:
		answer := strings.ToLower(question.CorrectAnswer)
		if answer != "true" && answer != "false" {
			return models.Question{}, fmt.Errorf("%w: true_false answers must be true or false", ErrInvalidInput)
		}
		question.CorrectAnswer = answer
	}
	if question.IsAutoGradable() && question.CorrectAnswer == "" {
		return models.Question{}, fmt.Errorf("%w: correct_answer is required for %s questions", ErrInvalidInput, questionType)
	}
	return question, nil
}

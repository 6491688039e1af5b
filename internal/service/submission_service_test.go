package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

type submissionFixture struct {
	svc        *submissionService
	teacher    models.User
	student    models.User
	classmate  models.User
	outsider   models.User
	assignment models.Assignment
	questionID string
}

func newSubmissionFixture(t *testing.T, configure func(*models.Assignment)) (*gorm.DB, submissionFixture) {
	t.Helper()
	db := setupServiceDB(t)

	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	class := seedClass(t, db, "Databases", teacher.ID, 30)
	otherClass := seedClass(t, db, "Networks", teacher.ID, 30)
	student := seedStudent(t, db, "student", &class.ID)
	classmate := seedStudent(t, db, "classmate", &class.ID)
	outsider := seedStudent(t, db, "outsider", &otherClass.ID)

	assignment := seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentPublished,
		fixedNow.Add(-24*time.Hour), fixedNow.Add(time.Hour),
		models.Question{Content: "SELECT?", Type: models.QuestionSingleChoice, Options: []string{"a", "b"}, CorrectAnswer: "a", Score: 100},
	)
	if configure != nil {
		configure(&assignment)
		require.NoError(t, db.Omit("Questions").Save(&assignment).Error)
	}

	svc := NewSubmissionService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		nil,
		testValidator(),
		testLogger(),
	).(*submissionService)
	svc.now = func() time.Time { return fixedNow }

	return db, submissionFixture{
		svc:        svc,
		teacher:    teacher,
		student:    student,
		classmate:  classmate,
		outsider:   outsider,
		assignment: assignment,
		questionID: strconv.FormatUint(uint64(assignment.Questions[0].ID), 10),
	}
}

func (f submissionFixture) answers(value string) dto.SaveAnswersRequest {
	return dto.SaveAnswersRequest{Answers: map[string]string{f.questionID: value}}
}

func TestSubmissionServiceTakeHidesAnswers(t *testing.T) {
	_, f := newSubmissionFixture(t, nil)
	ctx := context.Background()

	taken, err := f.svc.Take(ctx, actorOf(f.student), f.assignment.ID)
	require.NoError(t, err)
	require.Nil(t, taken.Submission)
	require.Len(t, taken.Assignment.Questions, 1)
	require.Nil(t, taken.Assignment.Questions[0].CorrectAnswer)

	_, err = f.svc.SaveDraft(ctx, actorOf(f.student), f.assignment.ID, f.answers("b"))
	require.NoError(t, err)

	taken, err = f.svc.Take(ctx, actorOf(f.student), f.assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, taken.Submission)
	require.Equal(t, "b", taken.Submission.Answers[f.questionID])

	_, err = f.svc.Take(ctx, actorOf(f.outsider), f.assignment.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Take(ctx, actorOf(f.teacher), f.assignment.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSubmissionServiceDraftUpgradesInPlaceAndKeepsLateness(t *testing.T) {
	_, f := newSubmissionFixture(t, func(a *models.Assignment) { a.AllowLateSubmission = true })
	ctx := context.Background()

	draft, err := f.svc.SaveDraft(ctx, actorOf(f.student), f.assignment.ID, f.answers("b"))
	require.NoError(t, err)
	require.False(t, draft.IsSubmitted)
	require.False(t, draft.IsLate)

	again, err := f.svc.SaveDraft(ctx, actorOf(f.student), f.assignment.ID, f.answers("a"))
	require.NoError(t, err)
	require.Equal(t, draft.ID, again.ID)

	f.svc.now = func() time.Time { return fixedNow.Add(3 * time.Hour) }

	submitted, err := f.svc.Submit(ctx, actorOf(f.student), f.assignment.ID, dto.SaveAnswersRequest{})
	require.NoError(t, err)
	require.Equal(t, draft.ID, submitted.ID)
	require.True(t, submitted.IsSubmitted)
	require.False(t, submitted.IsLate)
	require.Equal(t, "a", submitted.Answers[f.questionID])
	require.NotNil(t, submitted.SubmittedAt)

	late, err := f.svc.Submit(ctx, actorOf(f.classmate), f.assignment.ID, f.answers("a"))
	require.NoError(t, err)
	require.True(t, late.IsLate)
}

func TestSubmissionServiceAttemptLimits(t *testing.T) {
	_, f := newSubmissionFixture(t, func(a *models.Assignment) { a.MaxAttempts = 2 })
	ctx := context.Background()
	student := actorOf(f.student)

	first, err := f.svc.Submit(ctx, student, f.assignment.ID, f.answers("b"))
	require.NoError(t, err)

	_, err = f.svc.SaveDraft(ctx, student, f.assignment.ID, f.answers("a"))
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	second, err := f.svc.Submit(ctx, student, f.assignment.ID, f.answers("a"))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	_, err = f.svc.Submit(ctx, student, f.assignment.ID, f.answers("a"))
	require.ErrorIs(t, err, ErrSubmissionClosed)

	_, err = f.svc.Take(ctx, student, f.assignment.ID)
	require.ErrorIs(t, err, ErrSubmissionClosed)
}

func TestSubmissionServiceRejectsClosedAndUnknownQuestions(t *testing.T) {
	_, f := newSubmissionFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SaveDraft(ctx, actorOf(f.student), f.assignment.ID, dto.SaveAnswersRequest{Answers: map[string]string{"999999": "x"}})
	require.ErrorIs(t, err, ErrInvalidInput)

	f.svc.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	_, err = f.svc.Submit(ctx, actorOf(f.student), f.assignment.ID, f.answers("a"))
	require.ErrorIs(t, err, ErrSubmissionClosed)

	_, err = f.svc.Submit(ctx, actorOf(f.student), f.assignment.ID+100, f.answers("a"))
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSubmissionServiceResults(t *testing.T) {
	db, f := newSubmissionFixture(t, nil)
	ctx := context.Background()

	result, err := f.svc.Result(ctx, actorOf(f.student), f.assignment.ID)
	require.NoError(t, err)
	require.Nil(t, result.Student.Submission)

	submitted, err := f.svc.Submit(ctx, actorOf(f.student), f.assignment.ID, f.answers("a"))
	require.NoError(t, err)

	result, err = f.svc.Result(ctx, actorOf(f.student), f.assignment.ID)
	require.NoError(t, err)
	require.False(t, result.Student.IsDraft)
	require.Nil(t, result.Student.Submission.Percentage)

	_, err = repository.NewSubmissionRepository(db).SaveGrades(ctx, repository.GradeInput{
		SubmissionID: submitted.ID,
		Scores:       []models.QuestionScore{{QuestionID: f.assignment.Questions[0].ID, Score: 85}},
		GradedBy:     f.teacher.ID,
		GradedAt:     fixedNow,
	})
	require.NoError(t, err)

	result, err = f.svc.Result(ctx, actorOf(f.student), f.assignment.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Student.Submission.Percentage)
	require.InDelta(t, 85.0, *result.Student.Submission.Percentage, 1e-9)
	require.Equal(t, "good", result.Student.Submission.Band)

	summary, err := f.svc.Result(ctx, actorOf(f.teacher), f.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.Teacher.TotalStudents)
	require.Equal(t, 1, summary.Teacher.SubmittedCount)
	require.Equal(t, 1, summary.Teacher.GradedCount)
	require.Equal(t, 0, summary.Teacher.PendingCount)
	require.Equal(t, int64(1), summary.Teacher.UnsubmittedCount)
	require.Len(t, summary.Teacher.Submissions, 1)

	_, err = f.svc.Result(ctx, Actor{ID: 1, Role: models.RoleAdmin}, f.assignment.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

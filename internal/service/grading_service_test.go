package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

type gradingFixture struct {
	svc        *gradingService
	notifier   *recordingNotifier
	activities *memoryActivityRepo
	teacher    models.User
	stranger   models.User
	student    models.User
	assignment models.Assignment
	submission models.StudentSubmission
}

func newGradingFixture(t *testing.T, submitted bool) gradingFixture {
	t.Helper()
	db := setupServiceDB(t)

	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	stranger := seedUser(t, db, "stranger", models.RoleTeacher)
	class := seedClass(t, db, "Compilers", teacher.ID, 30)
	student := seedStudent(t, db, "student", &class.ID)

	assignment := seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentPublished,
		fixedNow.Add(-24*time.Hour), fixedNow.Add(time.Hour),
		models.Question{Content: "Pick one", Type: models.QuestionSingleChoice, Options: []string{"x", "y"}, CorrectAnswer: "x", Score: 40, Order: 1},
		models.Question{Content: "Explain parsing", Type: models.QuestionEssay, Score: 60, Order: 2},
	)

	choiceKey := strconv.FormatUint(uint64(assignment.Questions[0].ID), 10)
	essayKey := strconv.FormatUint(uint64(assignment.Questions[1].ID), 10)
	submission := models.StudentSubmission{
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		IsSubmitted:  submitted,
	}
	submission.Answers = answersOf(map[string]string{choiceKey: "x", essayKey: "Top-down and bottom-up"})
	require.NoError(t, db.Create(&submission).Error)

	notifier := &recordingNotifier{}
	activities := &memoryActivityRepo{}
	svc := NewGradingService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		notifier,
		NewActivityService(activities, testLogger()),
		testValidator(),
		testLogger(),
	).(*gradingService)
	svc.now = func() time.Time { return fixedNow }

	return gradingFixture{
		svc:        svc,
		notifier:   notifier,
		activities: activities,
		teacher:    teacher,
		stranger:   stranger,
		student:    student,
		assignment: assignment,
		submission: submission,
	}
}

func (f gradingFixture) key(i int) string {
	return strconv.FormatUint(uint64(f.assignment.Questions[i].ID), 10)
}

func TestGradingServiceDetailClassifiesAnswers(t *testing.T) {
	f := newGradingFixture(t, true)

	detail, err := f.svc.Detail(context.Background(), actorOf(f.teacher), f.assignment.ID, f.submission.ID)
	require.NoError(t, err)
	require.Len(t, detail.Questions, 2)
	require.Equal(t, "correct", detail.Questions[0].Correctness)
	require.Equal(t, "manual", detail.Questions[1].Correctness)
	require.Equal(t, "Top-down and bottom-up", detail.Questions[1].StudentAnswer)
	require.Nil(t, detail.Questions[0].Score)
	require.NotNil(t, detail.Questions[0].Question.CorrectAnswer)

	_, err = f.svc.Detail(context.Background(), actorOf(f.stranger), f.assignment.ID, f.submission.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Detail(context.Background(), actorOf(f.student), f.assignment.ID, f.submission.ID)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGradingServiceGradeSumsQuestionScores(t *testing.T) {
	f := newGradingFixture(t, true)
	ctx := context.Background()

	graded, err := f.svc.Grade(ctx, actorOf(f.teacher), f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{
		Scores: map[string]dto.QuestionGrade{
			f.key(0): {Score: 40},
			f.key(1): {Score: 45, Comment: "Missing LR tables"},
		},
		TeacherComments: "Solid work",
	})
	require.NoError(t, err)
	require.True(t, graded.IsGraded)
	require.NotNil(t, graded.Score)
	require.InDelta(t, 85.0, *graded.Score, 1e-9)
	require.InDelta(t, 85.0, *graded.Percentage, 1e-9)
	require.Equal(t, "good", graded.Band)
	require.Equal(t, "Solid work", graded.TeacherComments)
	require.Equal(t, f.teacher.ID, *graded.GradedBy)

	require.Len(t, f.notifier.messages, 1)
	require.Equal(t, f.student.ID, f.notifier.messages[0].UserID)
	require.Equal(t, models.NotificationTypeSubmissionGraded, f.notifier.messages[0].Type)
	require.Len(t, f.activities.entries, 1)
	require.Equal(t, models.ActivitySubmissionGraded, f.activities.entries[0].Action)

	regraded, err := f.svc.Grade(ctx, actorOf(f.teacher), f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{
		Scores: map[string]dto.QuestionGrade{f.key(1): {Score: 50}},
	})
	require.NoError(t, err)
	require.InDelta(t, 50.0, *regraded.Score, 1e-9)

	detail, err := f.svc.Detail(ctx, actorOf(f.teacher), f.assignment.ID, f.submission.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Questions[0].Score)
	require.InDelta(t, 0.0, *detail.Questions[0].Score, 1e-9)
}

func TestGradingServiceRejectsInvalidScores(t *testing.T) {
	f := newGradingFixture(t, true)
	ctx := context.Background()
	teacher := actorOf(f.teacher)

	_, err := f.svc.Grade(ctx, teacher, f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{
		Scores: map[string]dto.QuestionGrade{f.key(0): {Score: 41}},
	})
	require.ErrorIs(t, err, ErrScoreExceedsWeight)

	_, err = f.svc.Grade(ctx, teacher, f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{
		Scores: map[string]dto.QuestionGrade{f.key(0): {Score: -1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Grade(ctx, teacher, f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{
		Scores: map[string]dto.QuestionGrade{"424242": {Score: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Grade(ctx, actorOf(f.stranger), f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Grade(ctx, teacher, f.assignment.ID, f.submission.ID+10, dto.GradeSubmissionRequest{})
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	require.Empty(t, f.notifier.messages)
}

func TestGradingServiceRejectsDrafts(t *testing.T) {
	f := newGradingFixture(t, false)

	_, err := f.svc.Grade(context.Background(), actorOf(f.teacher), f.assignment.ID, f.submission.ID, dto.GradeSubmissionRequest{})
	require.ErrorIs(t, err, ErrSubmissionNotFinal)
}

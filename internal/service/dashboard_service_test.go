package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

func newTestDashboardService(t *testing.T, db *gorm.DB, cache *redis.Client) *dashboardService {
	t.Helper()
	svc := NewDashboardService(
		repository.NewAssignmentRepository(db),
		repository.NewForumRepository(db),
		repository.NewUserRepository(db),
		repository.NewNotificationRepository(db),
		cache,
		time.Minute,
		testLogger(),
	).(*dashboardService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestDashboardServiceStudentCountersAndCaching(t *testing.T) {
	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	db := setupServiceDB(t)
	ctx := context.Background()
	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	class := seedClass(t, db, "Statistics", teacher.ID, 30)
	student := seedStudent(t, db, "student", &class.ID)

	q := models.Question{Content: "q", Type: models.QuestionEssay, Score: 10}
	seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentPublished, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), q)
	started := seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentPublished, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), q)
	seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentDraft, fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), q)
	require.NoError(t, db.Create(&models.StudentSubmission{AssignmentID: started.ID, StudentID: student.ID}).Error)

	category := models.ForumCategory{Name: "General", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	post := models.ForumPost{Title: "Help", Content: "Stuck", CategoryID: category.ID, AuthorID: student.ID, ReplyCount: 3}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.PostReadStatus{UserID: student.ID, PostID: post.ID, ReadRepliesCount: 1, LastReadAt: fixedNow}).Error)
	require.NoError(t, db.Create(&models.Notification{UserID: student.ID, Type: "generic", Message: "hello"}).Error)

	svc := newTestDashboardService(t, db, cache)
	actor := actorOf(student)

	dashboard, err := svc.Get(ctx, actor)
	require.NoError(t, err)
	require.False(t, dashboard.CacheHit)
	require.Equal(t, "student", dashboard.Role)
	require.Equal(t, int64(1), dashboard.PendingAssignments)
	require.Equal(t, int64(2), dashboard.UnreadReplies)
	require.Equal(t, int64(1), dashboard.UnreadNotifications)
	require.True(t, mini.Exists(dashboardCacheKey(student.ID)))

	require.NoError(t, db.Create(&models.Notification{UserID: student.ID, Type: "generic", Message: "again"}).Error)

	cached, err := svc.Get(ctx, actor)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, int64(1), cached.UnreadNotifications)

	svc.Invalidate(ctx, student.ID)
	fresh, err := svc.Get(ctx, actor)
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, int64(2), fresh.UnreadNotifications)
}

func TestDashboardServiceTeacherPrivateMessagesWithoutCache(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()
	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	other := seedUser(t, db, "other", models.RoleTeacher)
	class := seedClass(t, db, "Physics", teacher.ID, 30)
	otherClass := seedClass(t, db, "Chemistry", other.ID, 30)
	student := seedStudent(t, db, "student", &class.ID)

	category := models.ForumCategory{Name: "Questions", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	posts := []models.ForumPost{
		{Title: "Private 1", Content: "?", CategoryID: category.ID, AuthorID: student.ID, Visibility: models.VisibilityTeacherOnly, TeachingClassID: &class.ID},
		{Title: "Private 2", Content: "?", CategoryID: category.ID, AuthorID: student.ID, Visibility: models.VisibilityTeacherOnly, TeachingClassID: &class.ID, ReplyCount: 1},
		{Title: "Elsewhere", Content: "?", CategoryID: category.ID, AuthorID: student.ID, Visibility: models.VisibilityTeacherOnly, TeachingClassID: &otherClass.ID},
	}
	require.NoError(t, db.Create(&posts).Error)

	svc := newTestDashboardService(t, db, nil)
	dashboard, err := svc.Get(ctx, actorOf(teacher))
	require.NoError(t, err)
	require.Equal(t, int64(1), dashboard.UnreadPrivateMessages)
	require.Zero(t, dashboard.PendingAssignments)
}

func TestDashboardRefreshesAfterStudentSubmits(t *testing.T) {
	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	db := setupServiceDB(t)
	ctx := context.Background()
	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	class := seedClass(t, db, "Algebra", teacher.ID, 30)
	student := seedStudent(t, db, "student", &class.ID)
	assignment := seedAssignment(t, db, class.ID, teacher.ID, models.AssignmentPublished,
		fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour),
		models.Question{Content: "2+2?", Type: models.QuestionSingleChoice, Options: []string{"4", "5"}, CorrectAnswer: "4", Score: 10},
	)

	dashboards := newTestDashboardService(t, db, cache)
	submissions := NewSubmissionService(
		repository.NewAssignmentRepository(db),
		repository.NewSubmissionRepository(db),
		repository.NewUserRepository(db),
		dashboards,
		testValidator(),
		testLogger(),
	).(*submissionService)
	submissions.now = func() time.Time { return fixedNow }

	before, err := dashboards.Get(ctx, actorOf(student))
	require.NoError(t, err)
	require.Equal(t, int64(1), before.PendingAssignments)

	questionID := strconv.FormatUint(uint64(assignment.Questions[0].ID), 10)
	_, err = submissions.Submit(ctx, actorOf(student), assignment.ID, dto.SaveAnswersRequest{Answers: map[string]string{questionID: "4"}})
	require.NoError(t, err)

	after, err := dashboards.Get(ctx, actorOf(student))
	require.NoError(t, err)
	require.False(t, after.CacheHit)
	require.Zero(t, after.PendingAssignments)
}

func TestDashboardInvalidateSkipsZeroIDsAndMissingCache(t *testing.T) {
	mini := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = cache.Close() })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, dashboardCacheKey(4), "{}", time.Minute).Err())
	require.NoError(t, cache.Set(ctx, dashboardCacheKey(5), "{}", time.Minute).Err())

	db := setupServiceDB(t)
	svc := newTestDashboardService(t, db, cache)
	svc.Invalidate(ctx, 0, 4)
	require.False(t, mini.Exists(dashboardCacheKey(4)))
	require.True(t, mini.Exists(dashboardCacheKey(5)))

	newTestDashboardService(t, db, nil).Invalidate(ctx, 5)
	invalidateDashboards(ctx, nil, 5)
	require.True(t, mini.Exists(dashboardCacheKey(5)))
}

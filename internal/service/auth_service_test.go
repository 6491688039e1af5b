package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

const testJWTSecret = "test-secret"

func newTestAuthService(db *gorm.DB, activities ActivityRecorder) *authService {
	svc := NewAuthService(
		repository.NewUserRepository(db),
		repository.NewMajorClassRepository(db),
		activities,
		TokenConfig{Secret: testJWTSecret, TTL: time.Hour},
		testValidator(),
		testLogger(),
	).(*authService)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func registration(username, number string, majorID, classID uint) dto.RegisterStudentRequest {
	return dto.RegisterStudentRequest{
		Username:             username,
		Password:             "password123",
		PasswordConfirmation: "password123",
		RealName:             "Student " + username,
		Email:                username + "@example.com",
		Gender:               models.GenderMale,
		StudentNumber:        number,
		Grade:                "2024",
		MajorClassID:         majorID,
		TeachingClassID:      classID,
	}
}

func TestAuthServiceRegisterPromotesFullClass(t *testing.T) {
	db := setupServiceDB(t)
	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	class := seedClass(t, db, "Algorithms", teacher.ID, 2)
	major := models.MajorClass{Name: "CS 2024"}
	require.NoError(t, db.Create(&major).Error)

	svc := newTestAuthService(db, nil)
	ctx := context.Background()

	first, err := svc.RegisterStudent(ctx, registration("alice", "2024000001", major.ID, class.ID))
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, first.Role)
	require.NotNil(t, first.StudentProfile)
	require.Equal(t, "Algorithms", first.StudentProfile.TeachingClassName)

	var stored models.TeachingClass
	require.NoError(t, db.First(&stored, class.ID).Error)
	require.Equal(t, models.TeachingClassOpen, stored.Status)

	_, err = svc.RegisterStudent(ctx, registration("bob", "2024000002", major.ID, class.ID))
	require.NoError(t, err)
	require.NoError(t, db.First(&stored, class.ID).Error)
	require.Equal(t, models.TeachingClassInProgress, stored.Status)

	_, err = svc.RegisterStudent(ctx, registration("carol", "2024000003", major.ID, class.ID))
	require.ErrorIs(t, err, ErrTeachingClassUnavailable)
}

func TestAuthServiceRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	db := setupServiceDB(t)
	teacher := seedUser(t, db, "teacher", models.RoleTeacher)
	class := seedClass(t, db, "Databases", teacher.ID, 10)
	major := models.MajorClass{Name: "SE 2024"}
	require.NoError(t, db.Create(&major).Error)

	svc := newTestAuthService(db, nil)
	ctx := context.Background()

	_, err := svc.RegisterStudent(ctx, registration("dave", "2024000010", major.ID, class.ID))
	require.NoError(t, err)

	_, err = svc.RegisterStudent(ctx, registration("dave", "2024000011", major.ID, class.ID))
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.RegisterStudent(ctx, registration("erin", "2024000010", major.ID, class.ID))
	require.ErrorIs(t, err, ErrStudentNumberTaken)

	_, err = svc.RegisterStudent(ctx, registration("frank", "2024000012", major.ID+50, class.ID))
	require.ErrorIs(t, err, ErrMajorClassNotFound)

	_, err = svc.RegisterStudent(ctx, registration("gina", "2024000013", major.ID, class.ID+50))
	require.ErrorIs(t, err, ErrTeachingClassUnavailable)

	bad := registration("hank", "12345", major.ID, class.ID)
	_, err = svc.RegisterStudent(ctx, bad)
	require.Error(t, err)

	mismatch := registration("ivan", "2024000014", major.ID, class.ID)
	mismatch.PasswordConfirmation = "different1"
	_, err = svc.RegisterStudent(ctx, mismatch)
	require.Error(t, err)
}

func TestAuthServiceLoginIssuesVerifiableToken(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestAuthService(db, nil)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{Username: "prof", PasswordHash: string(hash), Role: models.RoleTeacher}
	require.NoError(t, db.Create(&user).Error)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "prof", Password: "secret-pass"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", resp.TokenType)

	claims, err := middleware.ParseToken(testJWTSecret, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, claims.Role)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "prof", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "ghost", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthServiceCreateTeacherRequiresAdmin(t *testing.T) {
	db := setupServiceDB(t)
	activities := &memoryActivityRepo{}
	svc := newTestAuthService(db, NewActivityService(activities, testLogger()))
	req := dto.AdminTeacherCreateRequest{Username: "newprof", Password: "password123", RealName: "New Prof", Title: "Lecturer"}

	_, err := svc.CreateTeacher(context.Background(), Actor{ID: 9, Role: models.RoleTeacher}, req)
	require.ErrorIs(t, err, ErrForbidden)

	created, err := svc.CreateTeacher(context.Background(), Actor{ID: 1, Role: models.RoleAdmin}, req)
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, created.Role)
	require.NotNil(t, created.TeacherProfile)
	require.Equal(t, "Lecturer", created.TeacherProfile.Title)
	require.Len(t, activities.entries, 1)
	require.Equal(t, models.ActivityTeacherCreated, activities.entries[0].Action)

	me, err := svc.Me(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "newprof", me.Username)

	_, err = svc.Me(context.Background(), created.ID+100)
	require.ErrorIs(t, err, ErrUserNotFound)
}

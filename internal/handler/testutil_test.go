package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/config"
	"github.com/noah-isme/course-portal-api/internal/database"
	"github.com/noah-isme/course-portal-api/internal/handler"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
	"github.com/noah-isme/course-portal-api/internal/router"
	"github.com/noah-isme/course-portal-api/internal/service"
)

const testSecret = "handler-test-secret"

var studentSeq atomic.Int64

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

type portal struct {
	app *fiber.App
	db  *gorm.DB
}

func newPortal(t *testing.T) portal {
	t.Helper()

	dsn := "file:http_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	cfg := config.Config{AppName: "Course Portal Test", AppEnv: "test", JWTSecret: testSecret, JWTTTL: time.Hour, Timezone: "UTC"}

	users := repository.NewUserRepository(db)
	majors := repository.NewMajorClassRepository(db)
	classes := repository.NewTeachingClassRepository(db)
	forum := repository.NewForumRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	notifications := repository.NewNotificationRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	dashboards := service.NewDashboardService(assignments, forum, users, notifications, nil, time.Minute, logger)
	notifier := service.NewNotificationService(notifications, nil, "", nil, dashboards, logger)
	seeder := service.NewSeedService(forum, majors, validate, true, "seed-token", logger)
	_, err = seeder.Defaults(t.Context())
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(service.NewAuthService(users, majors, activity, service.TokenConfig{Secret: testSecret, TTL: time.Hour}, validate, logger), logger),
		ClassHandler:         handler.NewClassHandler(service.NewTeachingClassService(classes, majors, activity, validate, logger), logger),
		ForumHandler:         handler.NewForumHandler(service.NewForumService(forum, users, classes, notifier, activity, dashboards, validate, logger), logger),
		AssignmentHandler:    handler.NewAssignmentHandler(service.NewAssignmentService(assignments, submissions, classes, users, notifier, activity, dashboards, validate, time.UTC, logger), logger),
		SubmissionHandler:    handler.NewSubmissionHandler(service.NewSubmissionService(assignments, submissions, users, dashboards, validate, logger), logger),
		GradingHandler:       handler.NewGradingHandler(service.NewGradingService(assignments, submissions, notifier, activity, validate, logger), logger),
		DashboardHandler:     handler.NewDashboardHandler(dashboards, logger),
		NotificationHandler:  handler.NewNotificationHandler(notifier, logger, time.Second),
		TeacherHandler:       handler.NewTeacherHandler(service.NewTeacherService(users, nil, logger), logger),
		AdminActivityHandler: handler.NewAdminActivityHandler(activity, logger),
		SeedHandler:          handler.NewSeedHandler(seeder, logger),
	})

	return portal{app: app, db: db}
}

func (p portal) user(t *testing.T, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{Username: username, RealName: username, Email: username + "@example.edu", PasswordHash: "x", Role: role}
	require.NoError(t, p.db.Create(&user).Error)
	if role == models.RoleTeacher {
		require.NoError(t, p.db.Create(&models.TeacherProfile{UserID: user.ID, Title: "Lecturer"}).Error)
	}
	return user
}

func (p portal) class(t *testing.T, name string, owner uint) models.TeachingClass {
	t.Helper()
	class := models.TeachingClass{
		Name:          name,
		ClassTime:     "Mon 08:00",
		ClassLocation: "Room 101",
		StartDate:     time.Now().AddDate(0, -1, 0),
		EndDate:       time.Now().AddDate(0, 3, 0),
		MaxStudents:   30,
		Status:        models.TeachingClassOpen,
		CreatedBy:     owner,
	}
	require.NoError(t, p.db.Create(&class).Error)
	return class
}

func (p portal) student(t *testing.T, username string, classID uint) models.User {
	t.Helper()
	user := p.user(t, username, models.RoleStudent)
	profile := models.StudentProfile{
		UserID:          user.ID,
		Gender:          models.GenderMale,
		StudentNumber:   fmt.Sprintf("2025%06d", studentSeq.Add(1)),
		Grade:           "2025",
		TeachingClassID: &classID,
	}
	require.NoError(t, p.db.Create(&profile).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, _, err := middleware.IssueToken(testSecret, user.ID, user.Role, time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

func (p portal) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	if resp.StatusCode != fiber.StatusNoContent {
		decodeResponse(t, resp, &env)
	}
	return resp, env
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

package service

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/database"
	"github.com/noah-isme/course-portal-api/internal/models"
)

var fixtureSeq atomic.Int64

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:svc_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{Username: username, RealName: strings.ToUpper(username[:1]) + username[1:], PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedClass(t *testing.T, db *gorm.DB, name string, owner uint, max int) models.TeachingClass {
	t.Helper()
	class := models.TeachingClass{
		Name:        name,
		StartDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2099, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxStudents: max,
		Status:      models.TeachingClassOpen,
		CreatedBy:   owner,
	}
	require.NoError(t, db.Create(&class).Error)
	return class
}

func seedStudent(t *testing.T, db *gorm.DB, username string, classID *uint) models.User {
	t.Helper()
	user := seedUser(t, db, username, models.RoleStudent)
	profile := models.StudentProfile{
		UserID:          user.ID,
		Gender:          models.GenderFemale,
		StudentNumber:   fmt.Sprintf("2024%06d", fixtureSeq.Add(1)),
		Grade:           "2024",
		TeachingClassID: classID,
	}
	require.NoError(t, db.Create(&profile).Error)
	user.StudentProfile = &profile
	return user
}

func seedAssignment(t *testing.T, db *gorm.DB, classID, owner uint, status models.AssignmentStatus, publish, due time.Time, questions ...models.Question) models.Assignment {
	t.Helper()
	assignment := models.Assignment{
		Title:           "Homework",
		TeachingClassID: classID,
		CreatedBy:       owner,
		PublishTime:     publish,
		DueTime:         due,
		TotalScore:      models.DefaultAssignmentTotalScore,
		Status:          status,
		MaxAttempts:     models.DefaultMaxAttempts,
		Questions:       questions,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return assignment
}

func answersOf(values map[string]string) datatypes.JSONType[models.Answers] {
	return datatypes.NewJSONType(models.Answers(values))
}

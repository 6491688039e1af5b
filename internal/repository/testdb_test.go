package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/database"
	"github.com/noah-isme/course-portal-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
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

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{Username: username, RealName: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createClass(t *testing.T, db *gorm.DB, name string, owner uint, max int) models.TeachingClass {
	t.Helper()
	class := models.TeachingClass{
		Name:        name,
		StartDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		MaxStudents: max,
		Status:      models.TeachingClassOpen,
		CreatedBy:   owner,
	}
	require.NoError(t, db.Create(&class).Error)
	return class
}

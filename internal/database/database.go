package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/config"
	"github.com/noah-isme/course-portal-api/internal/models"
)

// Connect opens the database selected by driver.
func Connect(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case config.DatabaseDriverSQLite:
		return ConnectSQLite(dsn)
	default:
		return ConnectPostgres(dsn)
	}
}

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite opens a SQLite database file, used for local development.
func ConnectSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn must not be empty")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every portal table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Models lists the persisted portal models in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.MajorClass{},
		&models.TeachingClass{},
		&models.StudentProfile{},
		&models.TeacherProfile{},
		&models.ForumCategory{},
		&models.ForumPost{},
		&models.ForumReply{},
		&models.PostReadStatus{},
		&models.Assignment{},
		&models.Question{},
		&models.StudentSubmission{},
		&models.QuestionScore{},
		&models.Notification{},
		&models.ActivityLog{},
	}
}

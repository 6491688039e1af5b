package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// UserRepository persists portal accounts and their profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	StudentNumberExists(ctx context.Context, number string) (bool, error)
	CreateStudent(ctx context.Context, user *models.User) (models.TeachingClass, error)
	CreateTeacher(ctx context.Context, user *models.User) error
	ListTeachers(ctx context.Context) ([]models.User, error)
	UpdateTeacherPhoto(ctx context.Context, userID uint, photoURL string) error
	ListStudentIDsByClass(ctx context.Context, classID uint) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) withProfiles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("StudentProfile.MajorClass").
		Preload("StudentProfile.TeachingClass").
		Preload("TeacherProfile")
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.withProfiles(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	if err := r.withProfiles(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) StudentNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StudentProfile{}).Where("student_number = ?", number).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateStudent inserts the user and its student profile, then promotes the
// chosen teaching class when the new registration fills it. The class row is
// locked for the duration of the transaction where the database supports it.
func (r *userRepository) CreateStudent(ctx context.Context, user *models.User) (models.TeachingClass, error) {
	var class models.TeachingClass
	if user.StudentProfile == nil || user.StudentProfile.TeachingClassID == nil {
		return class, ErrTeachingClassUnavailable
	}
	classID := *user.StudentProfile.TeachingClassID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&class, classID).Error; err != nil {
			return err
		}

		registered, err := countStudents(tx, classID)
		if err != nil {
			return err
		}
		if !class.CanRegister(registered) {
			return ErrTeachingClassUnavailable
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if class.PromoteIfFull(registered + 1) {
			return tx.Model(&models.TeachingClass{}).
				Where("id = ?", class.ID).
				Update("status", class.Status).Error
		}
		return nil
	})
	if err != nil {
		return models.TeachingClass{}, err
	}
	return class, nil
}

func (r *userRepository) CreateTeacher(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) ListTeachers(ctx context.Context) ([]models.User, error) {
	var teachers []models.User
	if err := r.db.WithContext(ctx).
		Preload("TeacherProfile").
		Where("role = ?", models.RoleTeacher).
		Order("real_name ASC, username ASC").
		Find(&teachers).Error; err != nil {
		return nil, err
	}
	return teachers, nil
}

func (r *userRepository) UpdateTeacherPhoto(ctx context.Context, userID uint, photoURL string) error {
	result := r.db.WithContext(ctx).Model(&models.TeacherProfile{}).
		Where("user_id = ?", userID).
		Update("photo_url", photoURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) ListStudentIDsByClass(ctx context.Context, classID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.StudentProfile{}).
		Where("teaching_class_id = ?", classID).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func countStudents(db *gorm.DB, classID uint) (int64, error) {
	var count int64
	err := db.Model(&models.StudentProfile{}).Where("teaching_class_id = ?", classID).Count(&count).Error
	return count, err
}

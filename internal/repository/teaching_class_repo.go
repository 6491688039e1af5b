package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// TeachingClassRepository persists teaching classes.
type TeachingClassRepository interface {
	GetByID(ctx context.Context, id uint) (models.TeachingClass, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, class *models.TeachingClass) error
	UpdateStatus(ctx context.Context, id uint, status models.TeachingClassStatus) error
	ListByCreator(ctx context.Context, teacherID uint) ([]models.TeachingClass, error)
	ListByStatus(ctx context.Context, status models.TeachingClassStatus) ([]models.TeachingClass, error)
	CountStudents(ctx context.Context, classIDs []uint) (map[uint]int64, error)
}

type teachingClassRepository struct {
	db *gorm.DB
}

// NewTeachingClassRepository constructs a GORM-backed repository.
func NewTeachingClassRepository(db *gorm.DB) TeachingClassRepository {
	return &teachingClassRepository{db: db}
}

func (r *teachingClassRepository) GetByID(ctx context.Context, id uint) (models.TeachingClass, error) {
	var class models.TeachingClass
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.TeachingClass{}, err
	}
	return class, nil
}

func (r *teachingClassRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TeachingClass{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *teachingClassRepository) Create(ctx context.Context, class *models.TeachingClass) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *teachingClassRepository) UpdateStatus(ctx context.Context, id uint, status models.TeachingClassStatus) error {
	result := r.db.WithContext(ctx).Model(&models.TeachingClass{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *teachingClassRepository) ListByCreator(ctx context.Context, teacherID uint) ([]models.TeachingClass, error) {
	var classes []models.TeachingClass
	if err := r.db.WithContext(ctx).
		Where("created_by = ?", teacherID).
		Order("created_at DESC").
		Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *teachingClassRepository) ListByStatus(ctx context.Context, status models.TeachingClassStatus) ([]models.TeachingClass, error) {
	var classes []models.TeachingClass
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("start_date ASC, name ASC").
		Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// CountStudents returns the registered student count per class. Classes
// without students are present with a zero count.
func (r *teachingClassRepository) CountStudents(ctx context.Context, classIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(classIDs))
	if len(classIDs) == 0 {
		return counts, nil
	}
	for _, id := range classIDs {
		counts[id] = 0
	}

	var rows []struct {
		TeachingClassID uint
		Total           int64
	}
	if err := r.db.WithContext(ctx).Model(&models.StudentProfile{}).
		Select("teaching_class_id, COUNT(*) AS total").
		Where("teaching_class_id IN ?", classIDs).
		Group("teaching_class_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TeachingClassID] = row.Total
	}
	return counts, nil
}

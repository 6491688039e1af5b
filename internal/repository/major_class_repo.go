package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// MajorClassRepository persists the administrative cohorts students pick at sign-up.
type MajorClassRepository interface {
	List(ctx context.Context) ([]models.MajorClass, error)
	GetByID(ctx context.Context, id uint) (models.MajorClass, error)
	UpsertBatch(ctx context.Context, items []models.MajorClass) (int64, error)
}

type majorClassRepository struct {
	db *gorm.DB
}

// NewMajorClassRepository constructs a GORM-backed repository.
func NewMajorClassRepository(db *gorm.DB) MajorClassRepository {
	return &majorClassRepository{db: db}
}

func (r *majorClassRepository) List(ctx context.Context) ([]models.MajorClass, error) {
	var items []models.MajorClass
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *majorClassRepository) GetByID(ctx context.Context, id uint) (models.MajorClass, error) {
	var item models.MajorClass
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.MajorClass{}, err
	}
	return item, nil
}

// UpsertBatch inserts missing cohorts by name and leaves existing ones intact.
func (r *majorClassRepository) UpsertBatch(ctx context.Context, items []models.MajorClass) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&items)
	return result.RowsAffected, result.Error
}

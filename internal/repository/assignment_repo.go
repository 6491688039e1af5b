package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// SubmissionCounts aggregates final submissions of one assignment.
type SubmissionCounts struct {
	Submitted int64
	Graded    int64
}

// AssignmentRepository defines persistence operations for assignments and their questions.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) error
	ListByCreator(ctx context.Context, teacherID uint) ([]models.Assignment, error)
	ListPublishedForClass(ctx context.Context, classID uint, now time.Time) ([]models.Assignment, error)
	CountPendingForStudent(ctx context.Context, studentID, classID uint, now time.Time) (int64, error)
	SubmissionCounts(ctx context.Context, assignmentIDs []uint) (map[uint]SubmissionCounts, error)

	CountQuestions(ctx context.Context, assignmentID uint) (int64, error)
	GetQuestion(ctx context.Context, assignmentID, questionID uint) (models.Question, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
	UpdateQuestion(ctx context.Context, question *models.Question) error
	DeleteQuestion(ctx context.Context, assignmentID, questionID uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("TeachingClass").
		First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

// Create inserts the assignment together with any attached questions.
func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit("TeachingClass").Create(assignment).Error
}

// Update saves the assignment row only; questions are managed separately.
func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(assignment).Error
}

func (r *assignmentRepository) UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *assignmentRepository) ListByCreator(ctx context.Context, teacherID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("TeachingClass").
		Where("created_by = ?", teacherID).
		Where("status <> ?", models.AssignmentArchived).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *assignmentRepository) ListPublishedForClass(ctx context.Context, classID uint, now time.Time) ([]models.Assignment, error) {
	var assignments []models.Assignment
	if err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		Preload("TeachingClass").
		Where("teaching_class_id = ?", classID).
		Where("status = ?", models.AssignmentPublished).
		Where("publish_time <= ?", now).
		Order("due_time ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// CountPendingForStudent counts published assignments of the class the student
// has not started yet.
func (r *assignmentRepository) CountPendingForStudent(ctx context.Context, studentID, classID uint, now time.Time) (int64, error) {
	started := r.db.Model(&models.StudentSubmission{}).
		Select("assignment_id").
		Where("student_id = ?", studentID)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("teaching_class_id = ?", classID).
		Where("status = ?", models.AssignmentPublished).
		Where("publish_time <= ?", now).
		Where("id NOT IN (?)", started).
		Count(&count).Error
	return count, err
}

func (r *assignmentRepository) SubmissionCounts(ctx context.Context, assignmentIDs []uint) (map[uint]SubmissionCounts, error) {
	counts := make(map[uint]SubmissionCounts, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		AssignmentID uint
		Submitted    int64
		Graded       int64
	}
	if err := r.db.WithContext(ctx).Model(&models.StudentSubmission{}).
		Select("assignment_id, COUNT(*) AS submitted, SUM(CASE WHEN is_graded THEN 1 ELSE 0 END) AS graded").
		Where("assignment_id IN ?", assignmentIDs).
		Where("is_submitted = ?", true).
		Group("assignment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.AssignmentID] = SubmissionCounts{Submitted: row.Submitted, Graded: row.Graded}
	}
	return counts, nil
}

func (r *assignmentRepository) CountQuestions(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Question{}).Where("assignment_id = ?", assignmentID).Count(&count).Error
	return count, err
}

func (r *assignmentRepository) GetQuestion(ctx context.Context, assignmentID, questionID uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		First(&question, questionID).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *assignmentRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *assignmentRepository) UpdateQuestion(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *assignmentRepository) DeleteQuestion(ctx context.Context, assignmentID, questionID uint) error {
	result := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&models.Question{}, questionID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

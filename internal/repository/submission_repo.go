package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// GradeInput is the outcome of grading one submission.
type GradeInput struct {
	SubmissionID    uint
	Scores          []models.QuestionScore
	TeacherComments string
	GradedBy        uint
	GradedAt        time.Time
}

// SubmissionRepository provides persistence for student submissions and their question scores.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.StudentSubmission, error)
	ListForStudent(ctx context.Context, studentID uint, assignmentIDs []uint) ([]models.StudentSubmission, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.StudentSubmission, error)
	Create(ctx context.Context, submission *models.StudentSubmission) error
	Update(ctx context.Context, submission *models.StudentSubmission) error
	SaveGrades(ctx context.Context, input GradeInput) (models.StudentSubmission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs a new repository instance.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.StudentSubmission, error) {
	var submission models.StudentSubmission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("QuestionScores").
		First(&submission, id).Error; err != nil {
		return models.StudentSubmission{}, err
	}

	return submission, nil
}

// ListForStudent returns the student's submissions, limited to the given
// assignments when the slice is not empty.
func (r *submissionRepository) ListForStudent(ctx context.Context, studentID uint, assignmentIDs []uint) ([]models.StudentSubmission, error) {
	query := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if len(assignmentIDs) > 0 {
		query = query.Where("assignment_id IN ?", assignmentIDs)
	}

	var submissions []models.StudentSubmission
	if err := query.Order("created_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.StudentSubmission, error) {
	var submissions []models.StudentSubmission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC, id DESC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.StudentSubmission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.StudentSubmission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(submission).Error
}

// SaveGrades upserts every question score and rolls their sum into the
// submission inside one transaction.
func (r *submissionRepository) SaveGrades(ctx context.Context, input GradeInput) (models.StudentSubmission, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(input.Scores) > 0 {
			for i := range input.Scores {
				input.Scores[i].SubmissionID = input.SubmissionID
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "submission_id"}, {Name: "question_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"score", "teacher_comment", "updated_at"}),
			}).Create(&input.Scores).Error; err != nil {
				return err
			}
		}

		var total float64
		if err := tx.Model(&models.QuestionScore{}).
			Select("COALESCE(SUM(score), 0)").
			Where("submission_id = ?", input.SubmissionID).
			Scan(&total).Error; err != nil {
			return err
		}

		result := tx.Model(&models.StudentSubmission{}).
			Where("id = ?", input.SubmissionID).
			Updates(map[string]interface{}{
				"score":            total,
				"is_graded":        true,
				"teacher_comments": input.TeacherComments,
				"graded_by":        input.GradedBy,
				"graded_at":        input.GradedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return models.StudentSubmission{}, err
	}

	return r.GetByID(ctx, input.SubmissionID)
}

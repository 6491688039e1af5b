package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/course-portal-api/internal/models"
)

const forumPostOrder = "forum_posts.is_pinned DESC, forum_posts.last_reply_at IS NULL, forum_posts.last_reply_at DESC, forum_posts.created_at DESC"

// ForumRepository persists forum categories, posts, replies and read markers.
type ForumRepository interface {
	ListActiveCategories(ctx context.Context) ([]models.ForumCategory, error)
	GetCategory(ctx context.Context, id uint) (models.ForumCategory, error)
	UpsertCategories(ctx context.Context, items []models.ForumCategory) (int64, error)

	ListLatestPosts(ctx context.Context, limit int) ([]models.ForumPost, error)
	ListPostsByCategory(ctx context.Context, categoryID uint) ([]models.ForumPost, error)
	ListTeacherOnlyPosts(ctx context.Context, teacherID uint, onlyUnreplied *bool, limit int) ([]models.ForumPost, error)
	ListPostsRepliedByTeachers(ctx context.Context, authorID uint, limit int) ([]models.ForumPost, error)
	GetPost(ctx context.Context, id uint) (models.ForumPost, error)
	CreatePost(ctx context.Context, post *models.ForumPost) error
	UpdatePostFlags(ctx context.Context, id uint, updates map[string]interface{}) error
	IncrementViewCount(ctx context.Context, id uint) error

	ListReplies(ctx context.Context, postID uint) ([]models.ForumReply, error)
	GetReply(ctx context.Context, id uint) (models.ForumReply, error)
	CreateReply(ctx context.Context, reply *models.ForumReply) (models.ForumPost, error)

	MarkRead(ctx context.Context, userID, postID uint, readReplies int, at time.Time) error
	SumUnreadReplies(ctx context.Context, authorID uint) (int64, error)
	CountUnrepliedTeacherOnly(ctx context.Context, teacherID uint) (int64, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository constructs a GORM-backed forum repository.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) ListActiveCategories(ctx context.Context) ([]models.ForumCategory, error) {
	var categories []models.ForumCategory
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *forumRepository) GetCategory(ctx context.Context, id uint) (models.ForumCategory, error) {
	var category models.ForumCategory
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return models.ForumCategory{}, err
	}
	return category, nil
}

func (r *forumRepository) UpsertCategories(ctx context.Context, items []models.ForumCategory) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "icon", "sort_order"}),
	}).Create(&items)
	return result.RowsAffected, result.Error
}

func (r *forumRepository) postQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.ForumPost{}).
		Preload("Author").
		Preload("TeachingClass")
}

func (r *forumRepository) ListLatestPosts(ctx context.Context, limit int) ([]models.ForumPost, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var posts []models.ForumPost
	if err := r.postQuery(ctx).Order(forumPostOrder).Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *forumRepository) ListPostsByCategory(ctx context.Context, categoryID uint) ([]models.ForumPost, error) {
	var posts []models.ForumPost
	if err := r.postQuery(ctx).
		Where("category_id = ?", categoryID).
		Order(forumPostOrder).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListTeacherOnlyPosts returns teacher_only posts linked to classes the teacher
// created. onlyUnreplied filters on reply_count when set.
func (r *forumRepository) ListTeacherOnlyPosts(ctx context.Context, teacherID uint, onlyUnreplied *bool, limit int) ([]models.ForumPost, error) {
	query := r.postQuery(ctx).
		Joins("JOIN teaching_classes ON teaching_classes.id = forum_posts.teaching_class_id").
		Where("forum_posts.visibility = ?", models.VisibilityTeacherOnly).
		Where("teaching_classes.created_by = ?", teacherID)

	if onlyUnreplied != nil {
		if *onlyUnreplied {
			query = query.Where("forum_posts.reply_count = 0")
		} else {
			query = query.Where("forum_posts.reply_count > 0")
		}
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []models.ForumPost
	if err := query.Order("forum_posts.created_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPostsRepliedByTeachers returns the author's posts that received at least
// one teacher reply, most recently active first.
func (r *forumRepository) ListPostsRepliedByTeachers(ctx context.Context, authorID uint, limit int) ([]models.ForumPost, error) {
	teacherReplies := r.db.Model(&models.ForumReply{}).
		Select("forum_replies.post_id").
		Joins("JOIN users ON users.id = forum_replies.author_id").
		Where("users.role = ?", models.RoleTeacher)

	query := r.postQuery(ctx).
		Where("forum_posts.author_id = ?", authorID).
		Where("forum_posts.id IN (?)", teacherReplies).
		Order("forum_posts.last_reply_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var posts []models.ForumPost
	if err := query.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *forumRepository) GetPost(ctx context.Context, id uint) (models.ForumPost, error) {
	var post models.ForumPost
	if err := r.postQuery(ctx).Preload("Category").First(&post, id).Error; err != nil {
		return models.ForumPost{}, err
	}
	return post, nil
}

func (r *forumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error
}

func (r *forumRepository) UpdatePostFlags(ctx context.Context, id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.ForumPost{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *forumRepository) IncrementViewCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ForumPost{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *forumRepository) ListReplies(ctx context.Context, postID uint) ([]models.ForumReply, error) {
	var replies []models.ForumReply
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *forumRepository) GetReply(ctx context.Context, id uint) (models.ForumReply, error) {
	var reply models.ForumReply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		return models.ForumReply{}, err
	}
	return reply, nil
}

// CreateReply stores the reply and recomputes the post's reply statistics in
// the same transaction. It returns the refreshed post.
func (r *forumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) (models.ForumPost, error) {
	var post models.ForumPost
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(reply).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.ForumReply{}).Where("post_id = ?", reply.PostID).Count(&count).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.ForumPost{}).
			Where("id = ?", reply.PostID).
			UpdateColumns(map[string]interface{}{
				"reply_count":      count,
				"last_reply_at":    reply.CreatedAt,
				"last_reply_by_id": reply.AuthorID,
			}).Error; err != nil {
			return err
		}

		return tx.First(&post, reply.PostID).Error
	})
	if err != nil {
		return models.ForumPost{}, err
	}
	return post, nil
}

func (r *forumRepository) MarkRead(ctx context.Context, userID, postID uint, readReplies int, at time.Time) error {
	status := models.PostReadStatus{
		UserID:           userID,
		PostID:           postID,
		ReadRepliesCount: readReplies,
		LastReadAt:       at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"read_replies_count", "last_read_at"}),
	}).Create(&status).Error
}

// SumUnreadReplies adds up replies the author has not seen yet across their
// own posts. Posts never opened count all of their replies.
func (r *forumRepository) SumUnreadReplies(ctx context.Context, authorID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("forum_posts").
		Select(`COALESCE(SUM(CASE
			WHEN forum_posts.reply_count > COALESCE(post_read_statuses.read_replies_count, 0)
			THEN forum_posts.reply_count - COALESCE(post_read_statuses.read_replies_count, 0)
			ELSE 0 END), 0)`).
		Joins("LEFT JOIN post_read_statuses ON post_read_statuses.post_id = forum_posts.id AND post_read_statuses.user_id = ?", authorID).
		Where("forum_posts.author_id = ?", authorID).
		Scan(&total).Error
	return total, err
}

func (r *forumRepository) CountUnrepliedTeacherOnly(ctx context.Context, teacherID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ForumPost{}).
		Joins("JOIN teaching_classes ON teaching_classes.id = forum_posts.teaching_class_id").
		Where("forum_posts.visibility = ?", models.VisibilityTeacherOnly).
		Where("teaching_classes.created_by = ?", teacherID).
		Where("forum_posts.reply_count = 0").
		Count(&count).Error
	return count, err
}

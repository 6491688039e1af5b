package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/observability"
	"github.com/noah-isme/course-portal-api/internal/permission"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

const (
	forumLatestWindow       = 50
	forumDefaultListLimit   = 10
	forumPrivateMessagesCap = 20
	forumRelatedHalf        = 5
	forumFilterPrivate      = "private_messages"
)

var (
	// ErrPostNotFound indicates the forum post does not exist.
	ErrPostNotFound = errors.New("forum post not found")
	// ErrCategoryNotFound indicates the category is missing or inactive.
	ErrCategoryNotFound = errors.New("forum category not found")
	// ErrPostLocked indicates the post no longer accepts replies.
	ErrPostLocked = errors.New("forum post is locked")
)

// ForumService serves forum listings, posts and replies with visibility applied.
type ForumService interface {
	ListCategories(ctx context.Context) ([]dto.ForumCategoryResponse, error)
	ListPosts(ctx context.Context, actor Actor, query dto.ForumPostListQuery) ([]dto.ForumPostSummary, error)
	ListCategoryPosts(ctx context.Context, actor Actor, categoryID uint) ([]dto.ForumPostSummary, error)
	GetPost(ctx context.Context, actor Actor, id uint) (dto.ForumPostDetail, error)
	CreatePost(ctx context.Context, actor Actor, req dto.ForumPostCreateRequest) (dto.ForumPostDetail, error)
	CreateReply(ctx context.Context, actor Actor, postID uint, req dto.ForumReplyCreateRequest) (dto.ForumReplyResponse, error)
	Moderate(ctx context.Context, actor Actor, postID uint, req dto.ForumModerationRequest) (dto.ForumPostSummary, error)
	Related(ctx context.Context, actor Actor) ([]dto.ForumPostSummary, error)
}

type forumService struct {
	forum      repository.ForumRepository
	users      repository.UserRepository
	classes    repository.TeachingClassRepository
	notifier   Notifier
	activities ActivityRecorder
	dashboards DashboardInvalidator
	validator  *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer
	plain      *bluemonday.Policy
	rich       *bluemonday.Policy
	now        func() time.Time
}

// NewForumService constructs the forum service.
func NewForumService(forum repository.ForumRepository, users repository.UserRepository, classes repository.TeachingClassRepository, notifier Notifier, activities ActivityRecorder, dashboards DashboardInvalidator, validate *validator.Validate, logger zerolog.Logger) ForumService {
	return &forumService{
		forum:      forum,
		users:      users,
		classes:    classes,
		notifier:   notifier,
		activities: activities,
		dashboards: dashboards,
		validator:  validate,
		logger:     logger.With().Str("component", "forum_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/course-portal-api/internal/service/forum"),
		plain:      bluemonday.StrictPolicy(),
		rich:       bluemonday.UGCPolicy(),
		now:        time.Now,
	}
}

func (s *forumService) ListCategories(ctx context.Context) ([]dto.ForumCategoryResponse, error) {
	categories, err := s.forum.ListActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ForumCategoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, dto.NewForumCategoryResponse(category))
	}
	return out, nil
}

func (s *forumService) ListPosts(ctx context.Context, actor Actor, query dto.ForumPostListQuery) ([]dto.ForumPostSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	if query.Filter == forumFilterPrivate && actor.Role == models.RoleTeacher {
		posts, err := s.forum.ListTeacherOnlyPosts(ctx, actor.ID, nil, forumPrivateMessagesCap)
		if err != nil {
			return nil, err
		}
		return dto.NewForumPostSummarySlice(posts), nil
	}

	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = forumDefaultListLimit
	}

	posts, err := s.forum.ListLatestPosts(ctx, forumLatestWindow)
	if err != nil {
		return nil, err
	}

	visible := make([]models.ForumPost, 0, limit)
	for _, post := range posts {
		if len(visible) == limit {
			break
		}
		if permission.CanView(post, viewer) {
			visible = append(visible, post)
		}
	}
	return dto.NewForumPostSummarySlice(visible), nil
}

func (s *forumService) ListCategoryPosts(ctx context.Context, actor Actor, categoryID uint) ([]dto.ForumPostSummary, error) {
	if _, err := s.activeCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	viewer, err := s.viewer(ctx, actor)
	if err != nil {
		return nil, err
	}

	posts, err := s.forum.ListPostsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.ForumPost, 0, len(posts))
	for _, post := range posts {
		if permission.CanView(post, viewer) {
			visible = append(visible, post)
		}
	}
	return dto.NewForumPostSummarySlice(visible), nil
}

func (s *forumService) GetPost(ctx context.Context, actor Actor, id uint) (dto.ForumPostDetail, error) {
	spanCtx, span := s.tracer.Start(ctx, "forum.get_post", trace.WithAttributes(
		attribute.Int64("forum.post_id", int64(id)),
	))
	defer span.End()

	post, err := s.post(spanCtx, id)
	if err != nil {
		return dto.ForumPostDetail{}, err
	}

	viewer, err := s.viewer(spanCtx, actor)
	if err != nil {
		return dto.ForumPostDetail{}, err
	}
	if !permission.CanView(post, viewer) {
		return dto.ForumPostDetail{}, ErrForbidden
	}

	if err := s.forum.IncrementViewCount(spanCtx, post.ID); err != nil {
		span.RecordError(err)
		return dto.ForumPostDetail{}, err
	}
	post.ViewCount++

	if viewer.Role == models.RoleStudent && post.AuthorID == viewer.UserID {
		if err := s.forum.MarkRead(spanCtx, viewer.UserID, post.ID, post.ReplyCount, s.now()); err != nil {
			s.logger.Warn().Err(err).Uint("post_id", post.ID).Msg("failed to mark post as read")
		} else {
			invalidateDashboards(spanCtx, s.dashboards, viewer.UserID)
		}
	}

	replies, err := s.forum.ListReplies(spanCtx, post.ID)
	if err != nil {
		return dto.ForumPostDetail{}, err
	}

	return dto.NewForumPostDetail(post, replies, permission.CanReply(post, viewer)), nil
}

func (s *forumService) CreatePost(ctx context.Context, actor Actor, req dto.ForumPostCreateRequest) (dto.ForumPostDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ForumPostDetail{}, err
	}

	if _, err := s.activeCategory(ctx, req.CategoryID); err != nil {
		return dto.ForumPostDetail{}, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ForumPostDetail{}, ErrUserNotFound
		}
		return dto.ForumPostDetail{}, err
	}

	title := strings.TrimSpace(s.plain.Sanitize(req.Title))
	content := strings.TrimSpace(s.rich.Sanitize(req.Content))
	if title == "" || content == "" {
		return dto.ForumPostDetail{}, fmt.Errorf("%w: title and content must not be empty", ErrInvalidInput)
	}

	postType := models.PostType(req.PostType)
	if postType == "" {
		postType = models.PostTypeDiscussion
	}
	visibility := models.Visibility(req.Visibility)
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	classID, err := s.postClass(ctx, user, visibility, req.TeachingClassID)
	if err != nil {
		return dto.ForumPostDetail{}, err
	}

	post := models.ForumPost{
		Title:           title,
		Content:         content,
		PostType:        postType,
		Visibility:      visibility,
		CategoryID:      req.CategoryID,
		AuthorID:        user.ID,
		TeachingClassID: classID,
	}
	if err := s.forum.CreatePost(ctx, &post); err != nil {
		return dto.ForumPostDetail{}, err
	}

	created, err := s.forum.GetPost(ctx, post.ID)
	if err != nil {
		return dto.ForumPostDetail{}, err
	}
	invalidateDashboards(ctx, s.dashboards, privateMessageOwner(created))
	return dto.NewForumPostDetail(created, nil, permission.CanReply(created, permission.ViewerFromUser(user))), nil
}

// privateMessageOwner returns the teacher whose private-message counter
// tracks the post, or 0 when the post is not a private message.
func privateMessageOwner(post models.ForumPost) uint {
	if post.Visibility != models.VisibilityTeacherOnly || post.TeachingClass == nil {
		return 0
	}
	return post.TeachingClass.CreatedBy
}

// postClass resolves the teaching class a new post is linked to.
func (s *forumService) postClass(ctx context.Context, user models.User, visibility models.Visibility, requested *uint) (*uint, error) {
	switch user.Role {
	case models.RoleStudent:
		var own *uint
		if user.StudentProfile != nil {
			own = user.StudentProfile.TeachingClassID
		}
		if visibility != models.VisibilityPublic && own == nil {
			return nil, fmt.Errorf("%w: join a teaching class before posting to it", ErrInvalidInput)
		}
		return own, nil
	case models.RoleTeacher, models.RoleAdmin:
		if requested == nil {
			if visibility != models.VisibilityPublic {
				return nil, fmt.Errorf("%w: teaching_class_id is required for non-public posts", ErrInvalidInput)
			}
			return nil, nil
		}
		class, err := s.classes.GetByID(ctx, *requested)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTeachingClassNotFound
			}
			return nil, err
		}
		if user.Role == models.RoleTeacher && !class.OwnedBy(user.ID) {
			return nil, ErrForbidden
		}
		id := class.ID
		return &id, nil
	default:
		return nil, ErrForbidden
	}
}

func (s *forumService) CreateReply(ctx context.Context, actor Actor, postID uint, req dto.ForumReplyCreateRequest) (dto.ForumReplyResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "forum.create_reply", trace.WithAttributes(
		attribute.Int64("forum.post_id", int64(postID)),
	))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.ForumReplyResponse{}, err
	}

	post, err := s.post(spanCtx, postID)
	if err != nil {
		return dto.ForumReplyResponse{}, err
	}

	user, err := s.users.GetByID(spanCtx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ForumReplyResponse{}, ErrUserNotFound
		}
		return dto.ForumReplyResponse{}, err
	}
	viewer := permission.ViewerFromUser(user)
	if !permission.CanReply(post, viewer) {
		if post.IsLocked && permission.CanView(post, viewer) {
			return dto.ForumReplyResponse{}, ErrPostLocked
		}
		return dto.ForumReplyResponse{}, ErrForbidden
	}

	content := strings.TrimSpace(s.rich.Sanitize(req.Content))
	if content == "" {
		return dto.ForumReplyResponse{}, fmt.Errorf("%w: reply content must not be empty", ErrInvalidInput)
	}

	if req.ParentID != nil {
		parent, err := s.forum.GetReply(spanCtx, *req.ParentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ForumReplyResponse{}, err
		}
		if err != nil || parent.PostID != post.ID {
			return dto.ForumReplyResponse{}, fmt.Errorf("%w: parent reply does not belong to this post", ErrInvalidInput)
		}
	}

	reply := models.ForumReply{
		PostID:   post.ID,
		AuthorID: user.ID,
		Content:  content,
		ParentID: req.ParentID,
	}
	if _, err := s.forum.CreateReply(spanCtx, &reply); err != nil {
		span.RecordError(err)
		return dto.ForumReplyResponse{}, err
	}
	reply.Author = &user
	observability.ForumReplies().Inc()
	invalidateDashboards(spanCtx, s.dashboards, post.AuthorID, privateMessageOwner(post))

	if post.AuthorID != user.ID && s.notifier != nil {
		err := s.notifier.Notify(spanCtx, NotificationMessage{
			UserID:   post.AuthorID,
			Type:     models.NotificationTypeForumReply,
			Message:  fmt.Sprintf("%s replied to \"%s\"", user.DisplayName(), post.Title),
			Metadata: map[string]interface{}{"post_id": post.ID, "reply_id": reply.ID},
		})
		if err != nil {
			s.logger.Warn().Err(err).Uint("post_id", post.ID).Msg("failed to notify post author")
		}
	}

	return dto.NewForumReplyResponse(reply), nil
}

func (s *forumService) Moderate(ctx context.Context, actor Actor, postID uint, req dto.ForumModerationRequest) (dto.ForumPostSummary, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return dto.ForumPostSummary{}, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTeacher:
		if post.TeachingClass == nil || !post.TeachingClass.OwnedBy(actor.ID) {
			return dto.ForumPostSummary{}, ErrForbidden
		}
	default:
		return dto.ForumPostSummary{}, ErrForbidden
	}

	updates := map[string]interface{}{}
	if req.IsLocked != nil {
		updates["is_locked"] = *req.IsLocked
		post.IsLocked = *req.IsLocked
	}
	if req.IsPinned != nil {
		updates["is_pinned"] = *req.IsPinned
		post.IsPinned = *req.IsPinned
	}
	if len(updates) == 0 {
		return dto.ForumPostSummary{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	if err := s.forum.UpdatePostFlags(ctx, post.ID, updates); err != nil {
		return dto.ForumPostSummary{}, err
	}

	recordActivity(ctx, s.activities, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     models.ActivityPostModerated,
		EntityType: "forum_post",
		EntityID:   uintPtr(post.ID),
		Metadata:   updates,
	})

	return dto.NewForumPostSummary(post), nil
}

// Related lists the posts a user most likely wants to revisit: for students
// their own posts answered by teachers, for teachers the private messages of
// their classes with unreplied ones first.
func (s *forumService) Related(ctx context.Context, actor Actor) ([]dto.ForumPostSummary, error) {
	switch actor.Role {
	case models.RoleStudent:
		posts, err := s.forum.ListPostsRepliedByTeachers(ctx, actor.ID, 2*forumRelatedHalf)
		if err != nil {
			return nil, err
		}
		return dto.NewForumPostSummarySlice(posts), nil
	case models.RoleTeacher:
		unreplied := true
		pending, err := s.forum.ListTeacherOnlyPosts(ctx, actor.ID, &unreplied, forumRelatedHalf)
		if err != nil {
			return nil, err
		}
		replied := false
		answered, err := s.forum.ListTeacherOnlyPosts(ctx, actor.ID, &replied, forumRelatedHalf)
		if err != nil {
			return nil, err
		}
		return dto.NewForumPostSummarySlice(append(pending, answered...)), nil
	default:
		return []dto.ForumPostSummary{}, nil
	}
}

func (s *forumService) viewer(ctx context.Context, actor Actor) (permission.Viewer, error) {
	if actor.Role != models.RoleStudent {
		return permission.Viewer{UserID: actor.ID, Role: actor.Role}, nil
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return permission.Viewer{}, ErrUserNotFound
		}
		return permission.Viewer{}, err
	}
	return permission.ViewerFromUser(user), nil
}

func (s *forumService) post(ctx context.Context, id uint) (models.ForumPost, error) {
	post, err := s.forum.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ForumPost{}, ErrPostNotFound
		}
		return models.ForumPost{}, err
	}
	return post, nil
}

func (s *forumService) activeCategory(ctx context.Context, id uint) (models.ForumCategory, error) {
	category, err := s.forum.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ForumCategory{}, ErrCategoryNotFound
		}
		return models.ForumCategory{}, err
	}
	if !category.IsActive {
		return models.ForumCategory{}, ErrCategoryNotFound
	}
	return category, nil
}

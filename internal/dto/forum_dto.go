package dto

import (
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// ForumCategoryResponse is a serialized forum category.
type ForumCategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `json:"order"`
}

// NewForumCategoryResponse converts a category into a DTO.
func NewForumCategoryResponse(category models.ForumCategory) ForumCategoryResponse {
	return ForumCategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Icon:        category.Icon,
		Order:       category.Order,
	}
}

// ForumPostListQuery filters the latest post listing.
type ForumPostListQuery struct {
	Filter string `query:"filter" validate:"omitempty,oneof=private_messages"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

// ForumPostCreateRequest is the payload to open a forum topic.
type ForumPostCreateRequest struct {
	Title           string `json:"title" validate:"required,max=200"`
	Content         string `json:"content" validate:"required,max=20000"`
	CategoryID      uint   `json:"category_id" validate:"required,gt=0"`
	PostType        string `json:"post_type" validate:"omitempty,oneof=discussion question announcement"`
	Visibility      string `json:"visibility" validate:"omitempty,oneof=public class_only teacher_only"`
	TeachingClassID *uint  `json:"teaching_class_id" validate:"omitempty,gt=0"`
}

// ForumReplyCreateRequest is the payload to answer a post.
type ForumReplyCreateRequest struct {
	Content  string `json:"content" validate:"required,max=10000"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
}

// ForumModerationRequest toggles moderation flags on a post.
type ForumModerationRequest struct {
	IsLocked *bool `json:"is_locked"`
	IsPinned *bool `json:"is_pinned"`
}

// UserLite summarizes a portal user in listings.
type UserLite struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

func newUserLite(user *models.User, fallbackID uint) UserLite {
	if user == nil {
		return UserLite{ID: fallbackID}
	}
	return UserLite{ID: user.ID, Username: user.Username, Name: user.DisplayName(), Role: user.Role}
}

// ForumPostSummary is a post as shown in listings.
type ForumPostSummary struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	PostType        models.PostType   `json:"post_type"`
	Visibility      models.Visibility `json:"visibility"`
	CategoryID      uint              `json:"category_id"`
	Author          UserLite          `json:"author"`
	TeachingClassID *uint             `json:"teaching_class_id"`
	IsPinned        bool              `json:"is_pinned"`
	IsLocked        bool              `json:"is_locked"`
	ViewCount       int               `json:"view_count"`
	ReplyCount      int               `json:"reply_count"`
	LastReplyAt     *time.Time        `json:"last_reply_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewForumPostSummary converts a post into a listing DTO.
func NewForumPostSummary(post models.ForumPost) ForumPostSummary {
	return ForumPostSummary{
		ID:              post.ID,
		Title:           post.Title,
		PostType:        post.PostType,
		Visibility:      post.Visibility,
		CategoryID:      post.CategoryID,
		Author:          newUserLite(post.Author, post.AuthorID),
		TeachingClassID: post.TeachingClassID,
		IsPinned:        post.IsPinned,
		IsLocked:        post.IsLocked,
		ViewCount:       post.ViewCount,
		ReplyCount:      post.ReplyCount,
		LastReplyAt:     post.LastReplyAt,
		CreatedAt:       post.CreatedAt,
	}
}

// NewForumPostSummarySlice converts posts into listing DTOs.
func NewForumPostSummarySlice(posts []models.ForumPost) []ForumPostSummary {
	out := make([]ForumPostSummary, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewForumPostSummary(post))
	}
	return out
}

// ForumReplyResponse is a reply in a post detail. Threads are rebuilt by
// clients from ParentID.
type ForumReplyResponse struct {
	ID        uint      `json:"id"`
	Author    UserLite  `json:"author"`
	Content   string    `json:"content"`
	ParentID  *uint     `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewForumReplyResponse converts a reply into a DTO.
func NewForumReplyResponse(reply models.ForumReply) ForumReplyResponse {
	return ForumReplyResponse{
		ID:        reply.ID,
		Author:    newUserLite(reply.Author, reply.AuthorID),
		Content:   reply.Content,
		ParentID:  reply.ParentID,
		CreatedAt: reply.CreatedAt,
	}
}

// ForumPostDetail is a post with its replies.
type ForumPostDetail struct {
	ForumPostSummary
	Content  string               `json:"content"`
	CanReply bool                 `json:"can_reply"`
	Replies  []ForumReplyResponse `json:"replies"`
}

// NewForumPostDetail converts a post and its replies into a DTO.
func NewForumPostDetail(post models.ForumPost, replies []models.ForumReply, canReply bool) ForumPostDetail {
	items := make([]ForumReplyResponse, 0, len(replies))
	for _, reply := range replies {
		items = append(items, NewForumReplyResponse(reply))
	}
	return ForumPostDetail{
		ForumPostSummary: NewForumPostSummary(post),
		Content:          post.Content,
		CanReply:         canReply,
		Replies:          items,
	}
}

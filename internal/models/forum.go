package models

import "time"

// PostType classifies a forum post.
type PostType string

const (
	PostTypeDiscussion   PostType = "discussion"
	PostTypeQuestion     PostType = "question"
	PostTypeAnnouncement PostType = "announcement"
)

// Valid reports whether the post type is known.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeDiscussion, PostTypeQuestion, PostTypeAnnouncement:
		return true
	default:
		return false
	}
}

// Visibility controls who may read a forum post.
type Visibility string

const (
	VisibilityPublic      Visibility = "public"
	VisibilityClassOnly   Visibility = "class_only"
	VisibilityTeacherOnly Visibility = "teacher_only"
)

// Valid reports whether the visibility is known.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityClassOnly, VisibilityTeacherOnly:
		return true
	default:
		return false
	}
}

// ForumCategory groups forum posts.
type ForumCategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ForumPost is a forum topic. TeachingClass must be preloaded for visibility
// checks on non-public posts.
type ForumPost struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"size:200;not null" json:"title"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	PostType        PostType       `gorm:"size:20;not null;default:discussion" json:"post_type"`
	Visibility      Visibility     `gorm:"size:20;not null;default:public;index" json:"visibility"`
	CategoryID      uint           `gorm:"not null;index" json:"category_id"`
	Category        *ForumCategory `json:"category,omitempty"`
	AuthorID        uint           `gorm:"not null;index" json:"author_id"`
	Author          *User          `json:"author,omitempty"`
	TeachingClassID *uint          `gorm:"index" json:"teaching_class_id"`
	TeachingClass   *TeachingClass `json:"teaching_class,omitempty"`
	IsPinned        bool           `gorm:"not null;default:false" json:"is_pinned"`
	IsLocked        bool           `gorm:"not null;default:false" json:"is_locked"`
	ViewCount       int            `gorm:"not null;default:0" json:"view_count"`
	ReplyCount      int            `gorm:"not null;default:0" json:"reply_count"`
	LastReplyAt     *time.Time     `json:"last_reply_at"`
	LastReplyByID   *uint          `json:"last_reply_by_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ForumReply answers a post. ParentID points at another reply of the same post
// and is used only for display threading.
type ForumReply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *User     `json:"author,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostReadStatus remembers how many replies a user had seen on a post.
type PostReadStatus struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_post_read_user_post" json:"user_id"`
	PostID           uint      `gorm:"not null;uniqueIndex:idx_post_read_user_post" json:"post_id"`
	ReadRepliesCount int       `gorm:"not null;default:0" json:"read_replies_count"`
	LastReadAt       time.Time `json:"last_read_at"`
}

package dto

import (
	"time"

	"gorm.io/datatypes"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationMeta computes the page count for a listing.
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationMeta{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: pages}
}

// AdminActivityListRequest defines filters for retrieving activity logs.
type AdminActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
}

// AdminActivityResponse serializes activity log entries.
type AdminActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// AdminActivityListResponse wraps paginated activity logs.
type AdminActivityListResponse struct {
	Items      []AdminActivityResponse `json:"items"`
	Pagination PaginationMeta          `json:"pagination"`
}

func metadataFromJSON(data datatypes.JSONMap) map[string]interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}(data)
}

// NewAdminActivityResponse converts a model into an activity DTO.
func NewAdminActivityResponse(entry models.ActivityLog) AdminActivityResponse {
	return AdminActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  string(entry.ActorRole),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadataFromJSON(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}
}

// AdminTeacherCreateRequest is the payload an admin uses to open a teacher account.
type AdminTeacherCreateRequest struct {
	Username          string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Password          string `json:"password" validate:"required,min=8,max=128"`
	RealName          string `json:"real_name" validate:"required,max=100"`
	Email             string `json:"email" validate:"omitempty,email"`
	Title             string `json:"title" validate:"omitempty,max=50"`
	Degree            string `json:"degree" validate:"omitempty,max=50"`
	Major             string `json:"major" validate:"omitempty,max=100"`
	ResearchDirection string `json:"research_direction" validate:"omitempty,max=2000"`
	Bio               string `json:"bio" validate:"omitempty,max=4000"`
}

// SeedCategory is a forum category supplied to the seeding endpoint.
type SeedCategory struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Icon        string `json:"icon" validate:"omitempty,max=50"`
	Order       int    `json:"order" validate:"gte=0"`
}

// SeedMajorClass is a major class supplied to the seeding endpoint.
type SeedMajorClass struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// SeedRequest carries reference data to insert. Empty lists fall back to the
// built-in defaults.
type SeedRequest struct {
	Categories   []SeedCategory   `json:"categories" validate:"omitempty,dive"`
	MajorClasses []SeedMajorClass `json:"major_classes" validate:"omitempty,dive"`
}

// SeedResponse reports how many rows each seeding step touched.
type SeedResponse struct {
	Categories   int64 `json:"categories"`
	MajorClasses int64 `json:"major_classes"`
}

package dto

import (
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// DateLayout is the calendar date format used for class dates.
const DateLayout = "2006-01-02"

// TeachingClassCreateRequest describes the payload for opening a teaching class.
type TeachingClassCreateRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"omitempty,max=4000"`
	ClassTime     string `json:"class_time" validate:"required,max=100"`
	ClassLocation string `json:"class_location" validate:"required,max=200"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	MaxStudents   int    `json:"max_students" validate:"required,gt=0"`
}

// TeachingClassStatusRequest changes the lifecycle state of a class.
type TeachingClassStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress finished"`
}

// TeachingClassResponse is the serialized teaching class.
type TeachingClassResponse struct {
	ID            uint                       `json:"id"`
	Name          string                     `json:"name"`
	Description   string                     `json:"description"`
	ClassTime     string                     `json:"class_time"`
	ClassLocation string                     `json:"class_location"`
	StartDate     string                     `json:"start_date"`
	EndDate       string                     `json:"end_date"`
	MaxStudents   int                        `json:"max_students"`
	StudentCount  int64                      `json:"student_count"`
	IsFull        bool                       `json:"is_full"`
	Status        models.TeachingClassStatus `json:"status"`
	CreatedBy     uint                       `json:"created_by"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// NewTeachingClassResponse converts a class and its registered count into a DTO.
func NewTeachingClassResponse(class models.TeachingClass, studentCount int64) TeachingClassResponse {
	return TeachingClassResponse{
		ID:            class.ID,
		Name:          class.Name,
		Description:   class.Description,
		ClassTime:     class.ClassTime,
		ClassLocation: class.ClassLocation,
		StartDate:     class.StartDate.Format(DateLayout),
		EndDate:       class.EndDate.Format(DateLayout),
		MaxStudents:   class.MaxStudents,
		StudentCount:  studentCount,
		IsFull:        class.IsFull(studentCount),
		Status:        class.Status,
		CreatedBy:     class.CreatedBy,
		CreatedAt:     class.CreatedAt,
	}
}

// MajorClassResponse is a registration choice for the student's cohort.
type MajorClassResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewMajorClassResponseSlice converts major classes into DTOs.
func NewMajorClassResponseSlice(items []models.MajorClass) []MajorClassResponse {
	out := make([]MajorClassResponse, 0, len(items))
	for _, item := range items {
		out = append(out, MajorClassResponse{ID: item.ID, Name: item.Name, Description: item.Description})
	}
	return out
}

package dto

import (
	"time"

	"github.com/noah-isme/course-portal-api/internal/models"
)

// RegisterStudentRequest is the self-service student sign-up payload.
type RegisterStudentRequest struct {
	Username             string `json:"username" validate:"required,min=3,max=150,alphanum"`
	Password             string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	RealName             string `json:"real_name" validate:"required,max=100"`
	Email                string `json:"email" validate:"required,email"`
	Gender               string `json:"gender" validate:"required,oneof=male female"`
	StudentNumber        string `json:"student_number" validate:"required,number,min=10,max=20"`
	Grade                string `json:"grade" validate:"required,len=4,startswith=20,number"`
	MajorClassID         uint   `json:"major_class_id" validate:"required,gt=0"`
	TeachingClassID      uint   `json:"teaching_class_id" validate:"required,gt=0"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token issued on login.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// UserResponse is the profile of a portal account.
type UserResponse struct {
	ID             uint                    `json:"id"`
	Username       string                  `json:"username"`
	RealName       string                  `json:"real_name"`
	Email          string                  `json:"email"`
	Role           models.Role             `json:"role"`
	StudentProfile *StudentProfileResponse `json:"student_profile,omitempty"`
	TeacherProfile *TeacherProfileResponse `json:"teacher_profile,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// StudentProfileResponse is the enrolment part of a student profile.
type StudentProfileResponse struct {
	Gender            string `json:"gender"`
	StudentNumber     string `json:"student_number"`
	Grade             string `json:"grade"`
	MajorClassID      *uint  `json:"major_class_id"`
	MajorClassName    string `json:"major_class_name,omitempty"`
	TeachingClassID   *uint  `json:"teaching_class_id"`
	TeachingClassName string `json:"teaching_class_name,omitempty"`
}

// TeacherProfileResponse is the public part of a teacher profile.
type TeacherProfileResponse struct {
	UserID            uint   `json:"user_id"`
	RealName          string `json:"real_name,omitempty"`
	Title             string `json:"title"`
	Degree            string `json:"degree"`
	Major             string `json:"major"`
	ResearchDirection string `json:"research_direction"`
	PhotoURL          string `json:"photo_url"`
	Bio               string `json:"bio"`
}

// NewUserResponse converts a user with its profiles into a DTO.
func NewUserResponse(user models.User) UserResponse {
	response := UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		RealName:  user.RealName,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}

	if profile := user.StudentProfile; profile != nil {
		student := &StudentProfileResponse{
			Gender:          profile.Gender,
			StudentNumber:   profile.StudentNumber,
			Grade:           profile.Grade,
			MajorClassID:    profile.MajorClassID,
			TeachingClassID: profile.TeachingClassID,
		}
		if profile.MajorClass != nil {
			student.MajorClassName = profile.MajorClass.Name
		}
		if profile.TeachingClass != nil {
			student.TeachingClassName = profile.TeachingClass.Name
		}
		response.StudentProfile = student
	}

	if user.TeacherProfile != nil {
		teacher := NewTeacherProfileResponse(*user.TeacherProfile, "")
		response.TeacherProfile = &teacher
	}

	return response
}

// NewTeacherProfileResponse converts a teacher profile into a DTO.
func NewTeacherProfileResponse(profile models.TeacherProfile, realName string) TeacherProfileResponse {
	return TeacherProfileResponse{
		UserID:            profile.UserID,
		RealName:          realName,
		Title:             profile.Title,
		Degree:            profile.Degree,
		Major:             profile.Major,
		ResearchDirection: profile.ResearchDirection,
		PhotoURL:          profile.PhotoURL,
		Bio:               profile.Bio,
	}
}

package models

import "time"

// Role identifies what a portal account is allowed to do. It is fixed when the
// account is created.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether the role is one of the known portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User is a portal account.
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Username       string          `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email          string          `gorm:"size:255" json:"email"`
	RealName       string          `gorm:"size:100" json:"real_name"`
	PasswordHash   string          `gorm:"size:255;not null" json:"-"`
	Role           Role            `gorm:"size:16;not null;index" json:"role"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	StudentProfile *StudentProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"student_profile,omitempty"`
	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"teacher_profile,omitempty"`
}

// DisplayName prefers the real name and falls back to the username.
func (u User) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Username
}

// MajorClass is the administrative cohort a student belongs to. It is unrelated
// to the teaching class the student is enrolled in.
type MajorClass struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// StudentProfile holds the enrolment data of a student account.
type StudentProfile struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Gender          string         `gorm:"size:10" json:"gender"`
	StudentNumber   string         `gorm:"size:20;uniqueIndex;not null" json:"student_number"`
	Grade           string         `gorm:"size:10" json:"grade"`
	MajorClassID    *uint          `gorm:"index" json:"major_class_id"`
	MajorClass      *MajorClass    `json:"major_class,omitempty"`
	TeachingClassID *uint          `gorm:"index" json:"teaching_class_id"`
	TeachingClass   *TeachingClass `json:"teaching_class,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TeacherProfile holds the public directory entry of a teacher.
type TeacherProfile struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Title             string    `gorm:"size:50" json:"title"`
	Degree            string    `gorm:"size:50" json:"degree"`
	Major             string    `gorm:"size:100" json:"major"`
	ResearchDirection string    `gorm:"type:text" json:"research_direction"`
	PhotoURL          string    `gorm:"size:512" json:"photo_url"`
	Bio               string    `gorm:"type:text" json:"bio"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

package models

import "time"

// TeachingClassStatus is the enrolment lifecycle of a teaching class.
type TeachingClassStatus string

const (
	TeachingClassOpen       TeachingClassStatus = "open"
	TeachingClassInProgress TeachingClassStatus = "in_progress"
	TeachingClassFinished   TeachingClassStatus = "finished"
)

// Valid reports whether the status is a known lifecycle state.
func (s TeachingClassStatus) Valid() bool {
	switch s {
	case TeachingClassOpen, TeachingClassInProgress, TeachingClassFinished:
		return true
	default:
		return false
	}
}

// DefaultMaxStudents is applied when a class is created without a capacity.
const DefaultMaxStudents = 50

// TeachingClass is a course offering that students register into.
type TeachingClass struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	Name          string              `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description   string              `gorm:"type:text" json:"description"`
	ClassTime     string              `gorm:"size:100" json:"class_time"`
	ClassLocation string              `gorm:"size:200" json:"class_location"`
	StartDate     time.Time           `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time           `gorm:"type:date;not null" json:"end_date"`
	MaxStudents   int                 `gorm:"not null;default:50" json:"max_students"`
	Status        TeachingClassStatus `gorm:"size:20;not null;default:open;index" json:"status"`
	CreatedBy     uint                `gorm:"not null;index" json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IsFull reports whether the registered count has reached capacity.
func (c TeachingClass) IsFull(registered int64) bool {
	return registered >= int64(c.MaxStudents)
}

// CanRegister reports whether a new student may join the class.
func (c TeachingClass) CanRegister(registered int64) bool {
	return c.Status == TeachingClassOpen && !c.IsFull(registered)
}

// PromoteIfFull moves an open class to in_progress once it is full. It returns
// true when the status changed.
func (c *TeachingClass) PromoteIfFull(registered int64) bool {
	if c.Status != TeachingClassOpen || !c.IsFull(registered) {
		return false
	}
	c.Status = TeachingClassInProgress
	return true
}

// FinishIfEnded moves an in-progress class to finished once the calendar day of
// now is past the end date.
func (c *TeachingClass) FinishIfEnded(now time.Time) bool {
	if c.Status != TeachingClassInProgress {
		return false
	}
	today := truncateToDay(now)
	if !today.After(truncateToDay(c.EndDate)) {
		return false
	}
	c.Status = TeachingClassFinished
	return true
}

// OwnedBy reports whether the given user created the class.
func (c TeachingClass) OwnedBy(userID uint) bool {
	return userID != 0 && c.CreatedBy == userID
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

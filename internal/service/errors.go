package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps request problems that struct tags cannot express.
	ErrInvalidInput = errors.New("invalid input")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

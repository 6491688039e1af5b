package repository

import "errors"

// ErrTeachingClassUnavailable is returned when a class is closed for
// registration or already full at the time of the write.
var ErrTeachingClassUnavailable = errors.New("teaching class is not open for registration")

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the sniffed MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrPhotoStorageUnavailable indicates no image storage is configured.
	ErrPhotoStorageUnavailable = errors.New("photo storage is not configured")
)

const defaultPhotoMaxBytes = 5 << 20

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// PhotoStorage persists images and returns their public URL.
type PhotoStorage interface {
	UploadImage(ctx context.Context, key string, reader io.Reader) (string, error)
}

// TeacherService serves the public teacher directory and profile photos.
type TeacherService interface {
	Directory(ctx context.Context) ([]dto.TeacherProfileResponse, error)
	UploadPhoto(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.TeacherProfileResponse, error)
}

type teacherService struct {
	users    repository.UserRepository
	storage  PhotoStorage
	maxBytes int64
	logger   zerolog.Logger
}

// NewTeacherService constructs the teacher service. storage may be nil, in
// which case photo uploads are refused.
func NewTeacherService(users repository.UserRepository, storage PhotoStorage, logger zerolog.Logger) TeacherService {
	return &teacherService{
		users:    users,
		storage:  storage,
		maxBytes: defaultPhotoMaxBytes,
		logger:   logger.With().Str("component", "teacher_service").Logger(),
	}
}

func (s *teacherService) Directory(ctx context.Context) ([]dto.TeacherProfileResponse, error) {
	teachers, err := s.users.ListTeachers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeacherProfileResponse, 0, len(teachers))
	for _, teacher := range teachers {
		profile := models.TeacherProfile{UserID: teacher.ID}
		if teacher.TeacherProfile != nil {
			profile = *teacher.TeacherProfile
		}
		out = append(out, dto.NewTeacherProfileResponse(profile, teacher.DisplayName()))
	}
	return out, nil
}

func (s *teacherService) UploadPhoto(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.TeacherProfileResponse, error) {
	if actor.Role != models.RoleTeacher {
		return dto.TeacherProfileResponse{}, ErrForbidden
	}
	if s.storage == nil {
		return dto.TeacherProfileResponse{}, ErrPhotoStorageUnavailable
	}
	if file == nil {
		return dto.TeacherProfileResponse{}, fmt.Errorf("%w: photo file is required", ErrInvalidInput)
	}
	if file.Size > s.maxBytes {
		return dto.TeacherProfileResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return dto.TeacherProfileResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxBytes+1)); err != nil {
		return dto.TeacherProfileResponse{}, err
	}
	if int64(buf.Len()) > s.maxBytes {
		return dto.TeacherProfileResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !mimetype.EqualsAny(detected.String(), allowedPhotoTypes...) {
		s.logger.Info().Str("mime", detected.String()).Uint("teacher_id", actor.ID).Msg("photo upload rejected")
		return dto.TeacherProfileResponse{}, fmt.Errorf("%w: %s", ErrUploadTypeNotAllowed, detected.String())
	}

	url, err := s.storage.UploadImage(ctx, fmt.Sprintf("teacher-%d", actor.ID), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return dto.TeacherProfileResponse{}, err
	}
	if err := s.users.UpdateTeacherPhoto(ctx, actor.ID, url); err != nil {
		if isNotFound(err) {
			return dto.TeacherProfileResponse{}, ErrUserNotFound
		}
		return dto.TeacherProfileResponse{}, err
	}

	teacher, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return dto.TeacherProfileResponse{}, err
	}
	profile := models.TeacherProfile{UserID: teacher.ID, PhotoURL: url}
	if teacher.TeacherProfile != nil {
		profile = *teacher.TeacherProfile
	}
	return dto.NewTeacherProfileResponse(profile, teacher.DisplayName()), nil
}

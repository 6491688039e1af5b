package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// TeacherHandler serves the public teacher directory and profile photos.
type TeacherHandler struct {
	service service.TeacherService
	logger  zerolog.Logger
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(service service.TeacherService, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		service: service,
		logger:  logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Directory lists teachers with their profile data.
func (h *TeacherHandler) Directory(c *fiber.Ctx) error {
	teachers, err := h.service.Directory(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teachers", teachers)
}

// UploadPhoto replaces the authenticated teacher's profile photo.
func (h *TeacherHandler) UploadPhoto(c *fiber.Ctx) error {
	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo file is required")
	}

	profile, err := h.service.UploadPhoto(requestContext(c), actorFromContext(c), file)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "photo updated", profile)
}

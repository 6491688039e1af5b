package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// GradingHandler exposes the teacher's grading screen.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register binds routes below an assignments group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Get("/:id/submissions/:sid", h.detail)
	router.Post("/:id/submissions/:sid/grade", h.grade)
}

func (h *GradingHandler) ids(c *fiber.Ctx) (uint, uint, error) {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	submissionID, err := parseUintParam(c, "sid")
	if err != nil {
		return 0, 0, err
	}
	return assignmentID, submissionID, nil
}

func (h *GradingHandler) detail(c *fiber.Ctx) error {
	assignmentID, submissionID, err := h.ids(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	detail, err := h.service.Detail(requestContext(c), actorFromContext(c), assignmentID, submissionID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission detail", detail)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	assignmentID, submissionID, err := h.ids(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.GradeSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	submission, err := h.service.Grade(requestContext(c), actorFromContext(c), assignmentID, submissionID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission graded", submission)
}

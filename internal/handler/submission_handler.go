package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// SubmissionHandler serves the student side of an assignment and its results.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register binds routes below an assignments group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("/:id/take", h.take)
	router.Post("/:id/draft", h.saveDraft)
	router.Post("/:id/submit", h.submit)
	router.Get("/:id/result", h.result)
}

func (h *SubmissionHandler) take(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	payload, err := h.service.Take(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment ready", payload)
}

func (h *SubmissionHandler) saveDraft(c *fiber.Ctx) error {
	id, req, err := h.answers(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := h.service.SaveDraft(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "draft saved", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, req, err := h.answers(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := h.service.Submit(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment submitted", submission)
}

func (h *SubmissionHandler) result(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.service.Result(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment result", result)
}

func (h *SubmissionHandler) answers(c *fiber.Ctx) (uint, dto.SaveAnswersRequest, error) {
	var req dto.SaveAnswersRequest
	id, err := parseUintParam(c, "id")
	if err != nil {
		return 0, req, err
	}
	if err := c.BodyParser(&req); err != nil {
		return 0, req, fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	return id, req, nil
}

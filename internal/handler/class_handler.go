package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// ClassHandler serves teaching class and major class endpoints.
type ClassHandler struct {
	service service.TeachingClassService
	logger  zerolog.Logger
}

// NewClassHandler constructs the handler.
func NewClassHandler(service service.TeachingClassService, logger zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		service: service,
		logger:  logger.With().Str("component", "class_handler").Logger(),
	}
}

// RegisterPublic binds the listings used by the registration form.
func (h *ClassHandler) RegisterPublic(router fiber.Router) {
	router.Get("/teaching-classes/open", h.listOpen)
	router.Get("/major-classes", h.listMajors)
}

// Register binds the teacher's class management routes.
func (h *ClassHandler) Register(router fiber.Router) {
	router.Get("", h.listMine)
	router.Post("", h.create)
	router.Patch("/:id/status", h.updateStatus)
}

func (h *ClassHandler) listOpen(c *fiber.Ctx) error {
	classes, err := h.service.ListOpen(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "open teaching classes", classes)
}

func (h *ClassHandler) listMajors(c *fiber.Ctx) error {
	majors, err := h.service.ListMajorClasses(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "major classes", majors)
}

func (h *ClassHandler) listMine(c *fiber.Ctx) error {
	classes, err := h.service.ListMine(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teaching classes", classes)
}

func (h *ClassHandler) create(c *fiber.Ctx) error {
	var req dto.TeachingClassCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	class, err := h.service.Create(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teaching class created", class)
}

func (h *ClassHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.TeachingClassStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	class, err := h.service.UpdateStatus(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teaching class updated", class)
}

package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// AssignmentHandler serves assignment authoring and listing.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register binds assignment routes on the given router.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.index)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Post("/:id/questions", h.addQuestion)
	router.Put("/:id/questions/:qid", h.updateQuestion)
	router.Delete("/:id/questions/:qid", h.deleteQuestion)
	router.Post("/:id/publish", h.publish)
	router.Post("/:id/archive", h.archive)
}

func (h *AssignmentHandler) index(c *fiber.Ctx) error {
	index, err := h.service.Index(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments", index)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var req dto.AssignmentCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	assignment, err := h.service.Create(requestContext(c), actorFromContext(c), req)
	if errors.Is(err, models.ErrAssignmentHasNoQuestions) && assignment.ID != 0 {
		// The draft was stored; only the publish step was refused.
		return utils.Fail(c, fiber.StatusUnprocessableEntity, err.Error(), fiber.Map{"assignment": assignment})
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment", assignment)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.AssignmentUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	assignment, err := h.service.Update(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AssignmentHandler) addQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	question, err := h.service.AddQuestion(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question added", question)
}

func (h *AssignmentHandler) updateQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	questionID, err := parseUintParam(c, "qid")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.QuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	question, err := h.service.UpdateQuestion(requestContext(c), actorFromContext(c), id, questionID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question updated", question)
}

func (h *AssignmentHandler) deleteQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	questionID, err := parseUintParam(c, "qid")
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.service.DeleteQuestion(requestContext(c), actorFromContext(c), id, questionID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	assignment, err := h.service.Publish(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment published", assignment)
}

func (h *AssignmentHandler) archive(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	assignment, err := h.service.Archive(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment archived", assignment)
}

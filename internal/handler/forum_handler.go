package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// ForumHandler serves the discussion forum.
type ForumHandler struct {
	service service.ForumService
	logger  zerolog.Logger
}

// NewForumHandler constructs the handler.
func NewForumHandler(service service.ForumService, logger zerolog.Logger) *ForumHandler {
	return &ForumHandler{
		service: service,
		logger:  logger.With().Str("component", "forum_handler").Logger(),
	}
}

// Register binds forum routes. Every route expects an authenticated user.
func (h *ForumHandler) Register(router fiber.Router) {
	router.Get("/categories", h.listCategories)
	router.Get("/categories/:id/posts", h.listCategoryPosts)
	router.Get("/posts", h.listPosts)
	router.Post("/posts", h.createPost)
	router.Get("/posts/:id", h.getPost)
	router.Post("/posts/:id/replies", h.createReply)
	router.Patch("/posts/:id/moderation", h.moderate)
	router.Get("/related", h.related)
}

func (h *ForumHandler) listCategories(c *fiber.Ctx) error {
	categories, err := h.service.ListCategories(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "forum categories", categories)
}

func (h *ForumHandler) listCategoryPosts(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	posts, err := h.service.ListCategoryPosts(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "forum posts", posts)
}

func (h *ForumHandler) listPosts(c *fiber.Ctx) error {
	var query dto.ForumPostListQuery
	if err := c.QueryParser(&query); err != nil {
		return badRequest(c, "invalid query")
	}

	posts, err := h.service.ListPosts(requestContext(c), actorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "forum posts", posts)
}

func (h *ForumHandler) getPost(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	post, err := h.service.GetPost(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "forum post", post)
}

func (h *ForumHandler) createPost(c *fiber.Ctx) error {
	var req dto.ForumPostCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	post, err := h.service.CreatePost(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "post created", post)
}

func (h *ForumHandler) createReply(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.ForumReplyCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	reply, err := h.service.CreateReply(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reply created", reply)
}

func (h *ForumHandler) moderate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.ForumModerationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	post, err := h.service.Moderate(requestContext(c), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "post updated", post)
}

func (h *ForumHandler) related(c *fiber.Ctx) error {
	posts, err := h.service.Related(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "related posts", posts)
}

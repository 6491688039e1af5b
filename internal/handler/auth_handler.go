package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/dto"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// AuthHandler serves registration, login and account endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic binds unauthenticated routes. loginGuard wraps the login
// route, typically with a rate limiter.
func (h *AuthHandler) RegisterPublic(router fiber.Router, loginGuard fiber.Handler) {
	router.Post("/register", h.register)
	if loginGuard != nil {
		router.Post("/login", loginGuard, h.login)
		return
	}
	router.Post("/login", h.login)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var req dto.RegisterStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	user, err := h.service.RegisterStudent(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", user)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	token, err := h.service.Login(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "login successful", token)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.service.Me(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile", user)
}

// CreateTeacher lets an admin open a teacher account.
func (h *AuthHandler) CreateTeacher(c *fiber.Ctx) error {
	var req dto.AdminTeacherCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	user, err := h.service.CreateTeacher(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher created", user)
}

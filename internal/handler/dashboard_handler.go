package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// DashboardHandler serves the per-role landing counters.
type DashboardHandler struct {
	service service.DashboardService
	logger  zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service service.DashboardService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		logger:  logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register binds the dashboard route.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *DashboardHandler) get(c *fiber.Ctx) error {
	dashboard, err := h.service.Get(requestContext(c), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "dashboard", dashboard)
}

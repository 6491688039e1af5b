package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/service"
	"github.com/noah-isme/course-portal-api/internal/utils"
)

// errorStatuses maps domain errors to HTTP statuses. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrForbidden, fiber.StatusForbidden},
	{models.ErrAssignmentNotOwner, fiber.StatusForbidden},
	{service.ErrSeedDisabled, fiber.StatusForbidden},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{service.ErrSeedUnauthorized, fiber.StatusUnauthorized},
	{service.ErrInvalidInput, fiber.StatusBadRequest},
	{service.ErrMajorClassNotFound, fiber.StatusBadRequest},
	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrTeachingClassNotFound, fiber.StatusNotFound},
	{service.ErrPostNotFound, fiber.StatusNotFound},
	{service.ErrCategoryNotFound, fiber.StatusNotFound},
	{service.ErrAssignmentNotFound, fiber.StatusNotFound},
	{service.ErrQuestionNotFound, fiber.StatusNotFound},
	{service.ErrSubmissionNotFound, fiber.StatusNotFound},
	{service.ErrNotificationNotFound, fiber.StatusNotFound},
	{service.ErrUsernameTaken, fiber.StatusConflict},
	{service.ErrStudentNumberTaken, fiber.StatusConflict},
	{service.ErrClassNameTaken, fiber.StatusConflict},
	{service.ErrTeachingClassUnavailable, fiber.StatusConflict},
	{service.ErrPostLocked, fiber.StatusConflict},
	{service.ErrAlreadySubmitted, fiber.StatusConflict},
	{models.ErrAssignmentAlreadyArchived, fiber.StatusConflict},
	{models.ErrAssignmentArchived, fiber.StatusConflict},
	{service.ErrAssignmentNotEditable, fiber.StatusConflict},
	{models.ErrAssignmentHasNoQuestions, fiber.StatusUnprocessableEntity},
	{service.ErrSubmissionClosed, fiber.StatusUnprocessableEntity},
	{service.ErrSubmissionNotFinal, fiber.StatusUnprocessableEntity},
	{service.ErrScoreExceedsWeight, fiber.StatusUnprocessableEntity},
	{service.ErrUploadTooLarge, fiber.StatusRequestEntityTooLarge},
	{service.ErrUploadTypeNotAllowed, fiber.StatusUnsupportedMediaType},
	{service.ErrPhotoStorageUnavailable, fiber.StatusServiceUnavailable},
}

// respondError writes the failure envelope for err. Unknown errors are logged
// and reported as 500 without leaking details.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(validationErrors))
	}

	for _, mapping := range errorStatuses {
		if errors.Is(err, mapping.err) {
			return utils.SendError(c, mapping.status, err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[toSnake(fieldErr.Field())] = fieldErr.Tag()
	}
	return details
}

func toSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func userIDFromContext(c *fiber.Ctx) uint {
	if id, ok := c.Locals("user_id").(uint); ok {
		return id
	}
	return 0
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	role, _ := c.Locals("user_role").(string)
	return service.Actor{
		ID:   userIDFromContext(c),
		Role: models.Role(strings.ToLower(strings.TrimSpace(role))),
	}
}

// requestContext carries the correlation id into the service layer.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendError(c, fiber.StatusBadRequest, message)
}

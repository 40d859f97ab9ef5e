package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	return parseUintParamValue(c.Params(key), key)
}

func parseUintParamValue(raw, key string) (uint, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func identityFromContext(c *fiber.Ctx) dto.Identity {
	identity, _ := middleware.IdentityFromContext(c)
	return identity
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.RequestLogger(c, base)
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, FieldError{Field: fieldErr.Field(), Rule: fieldErr.Tag()})
	}
	return details
}

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported with fallback.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrInvalidInput):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrStudentNumberTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSession):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidInviteCode),
		errors.Is(err, service.ErrSurveyForbidden),
		errors.Is(err, service.ErrSubmissionForbidden),
		errors.Is(err, service.ErrStudentOnly),
		errors.Is(err, service.ErrTeacherOnly):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSurveyNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrFeedbackNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSurveyClosed):
		return utils.SendError(c, fiber.StatusGone, err.Error())
	case errors.Is(err, service.ErrSurveyAuthoringFailed),
		errors.Is(err, service.ErrSubmissionFailed):
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

package handler

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

const (
	loginPath      = "/api/v1/auth/login"
	takeSurveyPath = "/api/v1/student/surveys/%d"
)

// AccessHandler turns public survey links into the right next step for the caller.
type AccessHandler struct {
	service service.AccessService
	logger  zerolog.Logger
}

// NewAccessHandler constructs the handler.
func NewAccessHandler(service service.AccessService, logger zerolog.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		logger:  logger.With().Str("component", "access_handler").Logger(),
	}
}

// Register attaches the public link route.
func (h *AccessHandler) Register(router fiber.Router) {
	router.Get("/:code", h.follow)
}

func (h *AccessHandler) follow(c *fiber.Ctx) error {
	code := c.Params("code")
	survey, err := h.service.Resolve(c.UserContext(), code)
	if err != nil {
		return respondError(c, h.logger, err, "failed to resolve survey link")
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		next := "/s/" + survey.Code
		return c.Redirect(loginPath+"?next="+url.QueryEscape(next), fiber.StatusFound)
	}
	if !identity.IsStudent() {
		return utils.SendError(c, fiber.StatusForbidden, service.ErrStudentOnly.Error())
	}

	return c.Redirect(fmt.Sprintf(takeSurveyPath, survey.ID), fiber.StatusFound)
}

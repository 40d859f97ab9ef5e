package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// ActivityHandler exposes the caller's audit trail.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	surveyID, err := parseQueryInt(c, "survey_id")
	if err != nil || surveyID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid survey id")
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		SurveyID:   uint(surveyID),
	}

	response, err := h.service.ListOwn(c.UserContext(), identityFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list activity logs")
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}

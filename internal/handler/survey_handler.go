package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// SurveyHandler exposes survey authoring and reporting endpoints to teachers.
type SurveyHandler struct {
	surveys     service.SurveyService
	statistics  service.StatisticsService
	exports     service.ExportService
	access      service.AccessService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewSurveyHandler constructs the handler.
func NewSurveyHandler(
	surveys service.SurveyService,
	statistics service.StatisticsService,
	exports service.ExportService,
	access service.AccessService,
	submissions service.SubmissionService,
	logger zerolog.Logger,
) *SurveyHandler {
	return &SurveyHandler{
		surveys:     surveys,
		statistics:  statistics,
		exports:     exports,
		access:      access,
		submissions: submissions,
		logger:      logger.With().Str("component", "survey_handler").Logger(),
	}
}

// Register attaches teacher survey routes to the router group.
func (h *SurveyHandler) Register(router fiber.Router) {
	surveys := router.Group("/surveys")
	surveys.Post("", h.create)
	surveys.Get("", h.list)
	surveys.Get("/:id", h.get)
	surveys.Put("/:id", h.edit)
	surveys.Delete("/:id", h.delete)
	surveys.Post("/:id/toggle", h.toggle)
	surveys.Get("/:id/submissions", h.listSubmissions)
	surveys.Get("/:id/statistics", h.showStatistics)
	surveys.Get("/:id/export", h.export)
	surveys.Get("/:id/link-code", h.linkCode)

	router.Get("/submissions/:id", h.viewSubmission)
}

func (h *SurveyHandler) create(c *fiber.Ctx) error {
	var payload dto.SurveyContentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	survey, err := h.surveys.Create(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save survey")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey created", survey)
}

func (h *SurveyHandler) list(c *fiber.Ctx) error {
	surveys, err := h.surveys.ListOwned(c.UserContext(), identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list surveys")
	}
	return utils.SendSuccess(c, "surveys retrieved", surveys)
}

func (h *SurveyHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	survey, err := h.surveys.GetOwned(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load survey")
	}
	return utils.SendSuccess(c, "survey retrieved", survey)
}

func (h *SurveyHandler) edit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SurveyContentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.surveys.Edit(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save survey")
	}

	if result.Versioned {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey saved as a new version", result)
	}
	return utils.SendSuccess(c, "survey updated", result)
}

func (h *SurveyHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.surveys.Delete(c.UserContext(), identityFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete survey")
	}
	return utils.SendSuccess(c, "survey deleted", nil)
}

func (h *SurveyHandler) toggle(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	survey, err := h.surveys.Toggle(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update survey status")
	}
	return utils.SendSuccess(c, "survey status updated", survey)
}

func (h *SurveyHandler) listSubmissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.surveys.ListSubmissions(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SurveyHandler) showStatistics(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.statistics.ForSurvey(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute statistics")
	}
	return utils.SendSuccess(c, "statistics retrieved", stats)
}

func (h *SurveyHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.exports.ExportResponses(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to export responses")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Attachment(file.Filename)
	return c.Send(file.Content)
}

func (h *SurveyHandler) linkCode(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	link, err := h.access.LinkCode(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to generate link code")
	}

	if strings.EqualFold(c.Query("format"), "png") {
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(link.Image)
	}
	return utils.SendSuccess(c, "link code generated", link)
}

func (h *SurveyHandler) viewSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.submissions.Get(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load submission")
	}
	return utils.SendSuccess(c, "submission retrieved", detail)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// StudentSurveyHandler lets students take surveys and review their history.
type StudentSurveyHandler struct {
	surveys     service.SurveyService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewStudentSurveyHandler constructs the handler.
func NewStudentSurveyHandler(surveys service.SurveyService, submissions service.SubmissionService, logger zerolog.Logger) *StudentSurveyHandler {
	return &StudentSurveyHandler{
		surveys:     surveys,
		submissions: submissions,
		logger:      logger.With().Str("component", "student_survey_handler").Logger(),
	}
}

// Register attaches student survey routes to the router group.
func (h *StudentSurveyHandler) Register(router fiber.Router) {
	router.Get("/surveys", h.listActive)
	router.Get("/surveys/:id", h.take)
	router.Post("/surveys/:id/submissions", h.submit)
	router.Get("/submissions", h.history)
	router.Get("/submissions/:id", h.viewSubmission)
}

func (h *StudentSurveyHandler) listActive(c *fiber.Ctx) error {
	surveys, err := h.surveys.ListActive(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to list surveys")
	}
	return utils.SendSuccess(c, "surveys retrieved", surveys)
}

func (h *StudentSurveyHandler) take(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	survey, err := h.surveys.GetActive(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load survey")
	}
	return utils.SendSuccess(c, "survey retrieved", survey)
}

func (h *StudentSurveyHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.submissions.Submit(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to record submission")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission recorded", submission)
}

func (h *StudentSurveyHandler) history(c *fiber.Ctx) error {
	submissions, err := h.submissions.ListOwn(c.UserContext(), identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list submissions")
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *StudentSurveyHandler) viewSubmission(c *fiber.Ctx) error {
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

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// FeedbackHandler serves both sides of the feedback channel.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// RegisterTeacher attaches the teacher inbox routes.
func (h *FeedbackHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.listAll)
	router.Post("/:id/read", h.markRead)
	router.Post("/:id/replies", h.reply)
}

// RegisterStudent attaches the student routes.
func (h *FeedbackHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.listOwn)
	router.Post("", h.create)
}

func (h *FeedbackHandler) create(c *fiber.Ctx) error {
	var payload dto.FeedbackCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	feedback, err := h.service.Create(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to send feedback")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback sent", feedback)
}

func (h *FeedbackHandler) listOwn(c *fiber.Ctx) error {
	items, err := h.service.ListOwn(c.UserContext(), identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list feedback")
	}
	return utils.SendSuccess(c, "feedback retrieved", items)
}

func (h *FeedbackHandler) listAll(c *fiber.Ctx) error {
	items, err := h.service.ListAll(c.UserContext(), identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list feedback")
	}
	return utils.SendSuccess(c, "feedback retrieved", items)
}

func (h *FeedbackHandler) markRead(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	feedback, err := h.service.MarkRead(c.UserContext(), identityFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update feedback")
	}
	return utils.SendSuccess(c, "feedback marked as read", feedback)
}

func (h *FeedbackHandler) reply(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeedbackReplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	feedback, err := h.service.Reply(c.UserContext(), identityFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to save reply")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reply sent", feedback)
}

package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// AccountHandler serves the caller's own account, profile and dashboard.
type AccountHandler struct {
	auth      service.AuthService
	dashboard service.DashboardService
	logger    zerolog.Logger
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(auth service.AuthService, dashboard service.DashboardService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		auth:      auth,
		dashboard: dashboard,
		logger:    logger.With().Str("component", "account_handler").Logger(),
	}
}

// Register attaches account routes to the router group.
func (h *AccountHandler) Register(router fiber.Router) {
	router.Get("/me", middleware.WithAuth(h.me, middleware.AuthOptions{RequireUser: true}))
	router.Patch("/me/profile", middleware.WithAuth(h.updateProfile, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/dashboard", middleware.WithAuth(h.showDashboard, middleware.AuthOptions{RequireUser: true}))
}

func (h *AccountHandler) me(c *fiber.Ctx) error {
	user, err := h.auth.Me(c.UserContext(), identityFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load account")
	}
	return utils.SendSuccess(c, "account retrieved", user)
}

func (h *AccountHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.auth.UpdateProfile(c.UserContext(), identityFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update profile")
	}
	return utils.SendSuccess(c, "profile updated", user)
}

func (h *AccountHandler) showDashboard(c *fiber.Ctx) error {
	identity := identityFromContext(c)
	if identity.IsTeacher() {
		view, err := h.dashboard.Teacher(c.UserContext(), identity)
		if err != nil {
			return respondError(c, h.logger, err, "failed to load dashboard")
		}
		return utils.SendSuccess(c, "dashboard retrieved", view)
	}

	view, err := h.dashboard.Student(c.UserContext(), identity)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", view)
}

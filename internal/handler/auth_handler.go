package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/dto"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// AuthHandlerConfig controls how sessions are handed to browsers.
type AuthHandlerConfig struct {
	CookieName   string
	SecureCookie bool
	LoginLimiter fiber.Handler
}

// AuthHandler exposes registration, login and logout endpoints.
type AuthHandler struct {
	service service.AuthService
	cfg     AuthHandlerConfig
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, cfg AuthHandlerConfig, logger zerolog.Logger) *AuthHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = "qs_session"
	}
	return &AuthHandler{
		service: service,
		cfg:     cfg,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth routes to the router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Get("/login", h.loginNotice)
	if h.cfg.LoginLimiter != nil {
		router.Post("/login", h.cfg.LoginLimiter, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/logout", middleware.WithAuth(h.logout, middleware.AuthOptions{RequireUser: true}))
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.Register(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration successful", user)
}

// loginNotice answers redirects from protected links. The requested path is
// echoed back so clients can resume after logging in.
func (h *AuthHandler) loginNotice(c *fiber.Ctx) error {
	data := fiber.Map{}
	if next := strings.TrimSpace(c.Query("next")); service.IsLocalRedirect(next) {
		data["next"] = next
	}
	return utils.SendSuccess(c, "login required", data)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if payload.Next == "" {
		payload.Next = c.Query("next")
	}

	session, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			requestLogger(h.logger, c).Info().Str("username", strings.TrimSpace(payload.Username)).Msg("login rejected")
		}
		return respondError(c, h.logger, err, "failed to log in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	token := middleware.TokenFromRequest(c, h.cfg.CookieName)
	if err := h.service.Logout(c.UserContext(), token); err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("logout could not revoke session")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.SendSuccess(c, "logged out", nil)
}

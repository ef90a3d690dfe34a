package handler

import (
	"log/slog"
	"net/http"

	"authgate/internal/delivery/api/flash"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	Gate    usecase.AuthGate
	Flow    usecase.OAuthFlow
	Flashes *flash.Store
	Logger  *slog.Logger
}

// AuthHandler serves the sign-in, registration, OAuth and logout endpoints.
type AuthHandler struct {
	gate    usecase.AuthGate
	flow    usecase.OAuthFlow
	flashes *flash.Store
	logger  *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		gate:    params.Gate,
		flow:    params.Flow,
		flashes: params.Flashes,
		logger:  params.Logger,
	}
}

// CredentialsRequest is the login and registration form. Emptiness is checked by the gate.
type CredentialsRequest struct {
	Email    string `form:"email" json:"email" validate:"max=254"`
	Password string `form:"password" json:"password" validate:"max=1024"`
}

func (h *AuthHandler) bindCredentials(c echo.Context) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return nil, domainerrors.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return nil, domainerrors.ErrInvalidInput
	}

	return &req, nil
}

// Login handles POST /login.
func (h *AuthHandler) Login(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, err)
	}

	result, err := h.gate.HandleLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, err)
	}

	return finish(c, h.flashes, http.StatusSeeOther, result)
}

// Register handles POST /register.
func (h *AuthHandler) Register(c echo.Context) error {
	req, err := h.bindCredentials(c)
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, err)
	}

	result, err := h.gate.HandleRegister(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, err)
	}

	return finish(c, h.flashes, http.StatusSeeOther, result)
}

// OAuthStart handles GET /auth/oauth/start by redirecting to the provider's consent page.
func (h *AuthHandler) OAuthStart(c echo.Context) error {
	authURL, err := h.flow.Start(c.Request().Context())
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusFound, err)
	}

	return c.Redirect(http.StatusFound, authURL)
}

// OAuthCallback handles GET /auth/oauth/callback.
func (h *AuthHandler) OAuthCallback(c echo.Context) error {
	ctx := c.Request().Context()

	if providerErr := c.QueryParam("error"); providerErr != "" {
		h.logger.Info("OAuth provider returned an error", slog.String("error", providerErr))
	}

	profile, err := h.flow.Complete(ctx, c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusFound, err)
	}

	result, err := h.gate.HandleOAuthCallback(ctx, profile)
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusFound, err)
	}

	return finish(c, h.flashes, http.StatusFound, result)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.gate.HandleLogout(c.Request().Context()); err != nil {
		return fail(c, h.flashes, h.logger, http.StatusFound, err)
	}

	return c.Redirect(http.StatusFound, homePath)
}

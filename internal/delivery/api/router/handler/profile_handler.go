package handler

import (
	"log/slog"
	"net/http"

	"authgate/internal/delivery/api/flash"
	"authgate/internal/delivery/api/middleware"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ProfileHandlerParams holds dependencies for ProfileHandler, injected by Fx.
type ProfileHandlerParams struct {
	fx.In

	Profiles usecase.ProfileService
	Flashes  *flash.Store
	Logger   *slog.Logger
}

// ProfileHandler serves profile changes for the signed-in user.
type ProfileHandler struct {
	profiles usecase.ProfileService
	flashes  *flash.Store
	logger   *slog.Logger
}

// NewProfileHandler is the constructor for ProfileHandler.
func NewProfileHandler(params ProfileHandlerParams) *ProfileHandler {
	return &ProfileHandler{
		profiles: params.Profiles,
		flashes:  params.Flashes,
		logger:   params.Logger,
	}
}

// UpdateProfileRequest is the profile form. Blank fields are left unchanged.
type UpdateProfileRequest struct {
	Email    string `form:"email" json:"email" validate:"max=254"`
	Password string `form:"password" json:"password" validate:"max=1024"`
}

// UpdateProfile handles POST /profile. It runs behind RequireUserMiddleware.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, domainerrors.ErrUnauthenticated)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, domainerrors.ErrInvalidInput)
	}
	if err := c.Validate(&req); err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, domainerrors.ErrInvalidInput)
	}

	result, err := h.profiles.UpdateProfile(c.Request().Context(), user, usecase.UpdateProfileInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return fail(c, h.flashes, h.logger, http.StatusSeeOther, err)
	}

	return finish(c, h.flashes, http.StatusSeeOther, result)
}

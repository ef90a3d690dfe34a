package handler

import (
	"log/slog"
	"net/http"
	"time"

	"authgate/internal/delivery/api/flash"
	"authgate/internal/delivery/api/middleware"
	"authgate/internal/delivery/api/response"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// UserView is the public shape of a user. It never carries the hash or provider tokens.
type UserView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	HasPassword bool      `json:"has_password"`
	Provider    string    `json:"provider,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewUserView maps a user to its public view. A nil user maps to nil.
func NewUserView(user *entity.User) *UserView {
	if user == nil {
		return nil
	}

	view := &UserView{
		ID:          user.ID,
		Email:       user.Email,
		HasPassword: user.HasPassword(),
		CreatedAt:   user.CreatedAt,
	}
	if user.OAuth != nil {
		view.Provider = string(user.OAuth.Provider)
	}

	return view
}

// HomeView is the index document: the current user and the flashes queued for this view.
type HomeView struct {
	User   *UserView `json:"user"`
	Errors []string  `json:"errors"`
	Info   []string  `json:"info"`
}

// HomeHandlerParams holds dependencies for HomeHandler, injected by Fx.
type HomeHandlerParams struct {
	fx.In

	Gate    usecase.AuthGate
	Flashes *flash.Store
	Logger  *slog.Logger
}

// HomeHandler serves the index document and the current user.
type HomeHandler struct {
	gate    usecase.AuthGate
	flashes *flash.Store
	logger  *slog.Logger
}

// NewHomeHandler is the constructor for HomeHandler.
func NewHomeHandler(params HomeHandlerParams) *HomeHandler {
	return &HomeHandler{
		gate:    params.Gate,
		flashes: params.Flashes,
		logger:  params.Logger,
	}
}

// Index handles GET /. Flashes are consumed by this view.
func (h *HomeHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.gate.RequireUser(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	messages := h.flashes.Pop(ctx)

	return c.JSON(http.StatusOK, HomeView{
		User:   NewUserView(user),
		Errors: messages.Errors,
		Info:   messages.Info,
	})
}

// Me handles GET /api/me. It runs behind RequireUserMiddleware.
func (h *HomeHandler) Me(c echo.Context) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	return response.Success(c, http.StatusOK, NewUserView(user))
}

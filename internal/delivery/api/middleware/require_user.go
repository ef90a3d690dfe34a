package middleware

import (
	"log/slog"

	"authgate/internal/delivery/api/response"
	deliverycontext "authgate/internal/delivery/context"
	"authgate/internal/domain/entity"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const contextKeyUser = "user"

// RequireUserMiddleware guards routes that need a signed-in user.
type RequireUserMiddleware struct {
	gate usecase.AuthGate
}

// NewRequireUserMiddleware is the constructor for RequireUserMiddleware.
func NewRequireUserMiddleware(gate usecase.AuthGate) *RequireUserMiddleware {
	return &RequireUserMiddleware{gate: gate}
}

// Handle resolves the session user and rejects anonymous requests with 401.
func (m *RequireUserMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.gate.RequireUser(c.Request().Context())
		if err != nil {
			return errors.WithStack(err)
		}
		if user == nil {
			return response.FromAppError(c, domainerrors.ErrUnauthenticated)
		}

		c.Set(contextKeyUser, user)
		ctx := deliverycontext.WithLogAttrs(c.Request().Context(), nil, slog.String("user_id", user.ID.String()))
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// GetUser returns the user set by RequireUserMiddleware.
func GetUser(c echo.Context) (*entity.User, bool) {
	user, ok := c.Get(contextKeyUser).(*entity.User)

	return user, ok && user != nil
}

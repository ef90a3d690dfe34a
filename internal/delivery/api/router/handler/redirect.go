package handler

import (
	"log/slog"
	"net/http"

	"authgate/internal/delivery/api/flash"
	apimiddleware "authgate/internal/delivery/api/middleware"
	"authgate/internal/delivery/api/response"
	deliverycontext "authgate/internal/delivery/context"
	domainerrors "authgate/internal/domain/errors"
	"authgate/internal/errors"
	"authgate/internal/usecase"

	"github.com/labstack/echo/v4"
)

const homePath = "/"

// finish queues the result's flash and follows its redirect.
func finish(c echo.Context, flashes *flash.Store, status int, result *usecase.GateResult) error {
	flashes.Add(c.Request().Context(), result.Flash)

	target := result.Redirect
	if target == "" {
		target = homePath
	}

	return c.Redirect(status, target)
}

// fail turns an error from a form endpoint into a flash and a redirect home.
// Client errors keep their message; anything else is logged and shown generically.
func fail(c echo.Context, flashes *flash.Store, logger *slog.Logger, status int, err error) error {
	message := domainerrors.ErrInternalError.Message()

	if appErr, ok := errors.AsType[domainerrors.AppError](err); ok && domainerrors.IsClientError(err) {
		message = appErr.Message()
	} else {
		deliverycontext.GetLoggerOrDefault(c.Request().Context(), logger).Error("Request failed",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	flashes.Add(c.Request().Context(), usecase.Flash{Kind: usecase.FlashError, Message: message})

	return c.Redirect(status, homePath)
}

// CSRFToken returns the token state-changing requests must send back.
func CSRFToken(c echo.Context) error {
	token, _ := c.Get(apimiddleware.CSRFContextKey).(string)

	return response.Success(c, http.StatusOK, map[string]string{"token": token})
}

// HealthCheck reports liveness.
func HealthCheck(c echo.Context) error {
	return response.Success(c, http.StatusOK, map[string]string{"status": "ok"})
}

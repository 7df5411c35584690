package web

import (
	"errors"
	"net/http"

	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const msgInternal = "Something went wrong, please try again later."

// StatusOf maps an error kind to the HTTP status of the response
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrUpstreamStorage):
		return http.StatusBadGateway
	case middleware.IsBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// FormError renders page again with the entered values in data and the
// errors list filled from err. Errors the user can't fix end up on the
// error page instead.
func FormError(c *gin.Context, d *internal.Deps, page string, data gin.H, err error) {
	if middleware.IsBodyTooLarge(err) {
		err = apperr.Rejected("image", "Upload is too large")
	}

	fields, ok := apperr.Fields(err)
	if !ok {
		ErrorPage(c, d, StatusOf(err), err)
		return
	}

	if data == nil {
		data = gin.H{}
	}
	data["errors"] = fields

	Render(c, d, StatusOf(err), page, data)
}

// ErrorPage logs err and renders the generic error page. The error itself
// is only shown outside production.
func ErrorPage(c *gin.Context, d *internal.Deps, status int, err error) {
	requestID := c.GetString(middleware.RequestIDKey)

	message := msgInternal
	var e *apperr.Error

	switch {
	case errors.As(err, &e) && status < http.StatusInternalServerError:
		message = e.Message
	case status >= http.StatusInternalServerError:
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	}

	data := gin.H{
		"message": message,
		"status":  status,
	}

	if d.Config != nil {
		data["env"] = d.Config.App.Env
	}

	if d.Config == nil || !d.Config.IsProduction() {
		if err != nil {
			data["detail"] = err.Error()
		}
	}

	Render(c, d, status, "error", data)
	c.Abort()
}

// Reject adapts the error page to middleware.RejectFunc
func Reject(d *internal.Deps) middleware.RejectFunc {
	return func(c *gin.Context, status int, msg string) {
		Render(c, d, status, "error", gin.H{
			"message": msg,
			"status":  status,
		})
		c.Abort()
	}
}

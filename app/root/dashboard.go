package root

import (
	"errors"
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Dashboard(c *gin.Context, d *internal.Deps) {
	userID := c.GetString(middleware.UserIDKey)

	user, err := d.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		// The session outlived its user, start over
		if errors.Is(err, apperr.ErrNotFound) {
			if err := d.Sessions.Destroy(c); err != nil {
				zap.L().Error("Failed to destroy stale session", zap.Error(err), zap.String("requestID", c.GetString(middleware.RequestIDKey)))
			}
			c.Redirect(http.StatusSeeOther, "/login")
			return
		}

		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	seeds, err := d.Seeds.ListMine(c.Request.Context(), userID)
	if err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	web.Render(c, d, http.StatusOK, "dashboard", gin.H{"user": user, "seeds": seeds})
}

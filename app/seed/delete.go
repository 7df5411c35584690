package seed

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SeedDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)
	userID := c.GetString(middleware.UserIDKey)
	seedID := c.Param("id")

	err := d.Seeds.Delete(c.Request.Context(), seedID, userID)
	if err != nil {
		// Someone else's listing looks exactly like a missing one
		if notOwned(err) {
			zap.L().Debug("Refused to delete seed", zap.String("seedID", seedID), zap.String("userID", userID), zap.String("requestID", requestID))
			c.Redirect(http.StatusSeeOther, minePath)
			return
		}

		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	d.Flashes.Add(c, "Listing deleted")
	c.Redirect(http.StatusSeeOther, minePath)
}

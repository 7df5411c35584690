package seed

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
)

func SeedsMine(c *gin.Context, d *internal.Deps) {
	userID := c.GetString(middleware.UserIDKey)

	seeds, err := d.Seeds.ListMine(c.Request.Context(), userID)
	if err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	web.Render(c, d, http.StatusOK, "seeds_mine", gin.H{"seeds": seeds})
}

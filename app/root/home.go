package root

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"

	"github.com/gin-gonic/gin"
)

func Home(c *gin.Context, d *internal.Deps) {
	web.Render(c, d, http.StatusOK, "home", nil)
}

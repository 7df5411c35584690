package seed

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"

	"github.com/gin-gonic/gin"
)

const pageIndex = "seeds_index"

func SeedsAll(c *gin.Context, d *internal.Deps) {
	seeds, err := d.Seeds.ListAll(c.Request.Context())
	if err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	web.Render(c, d, http.StatusOK, pageIndex, gin.H{"seeds": seeds, "query": ""})
}

func SeedsSearch(c *gin.Context, d *internal.Deps) {
	query := c.Query("q")

	seeds, err := d.Seeds.Search(c.Request.Context(), query)
	if err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	web.Render(c, d, http.StatusOK, pageIndex, gin.H{"seeds": seeds, "query": query})
}

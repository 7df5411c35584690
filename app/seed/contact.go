package seed

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/service"

	"github.com/gin-gonic/gin"
)

// SeedsContact builds the mailto links for the seeds picked on the browse
// page
func SeedsContact(c *gin.Context, d *internal.Deps) {
	var data service.ContactInput
	if err := c.ShouldBind(&data); err != nil {
		web.ErrorPage(c, d, http.StatusBadRequest, err)
		return
	}

	links, err := d.Seeds.ContactLinks(c.Request.Context(), data)
	if err != nil {
		seeds, lerr := d.Seeds.ListAll(c.Request.Context())
		if lerr != nil {
			web.ErrorPage(c, d, http.StatusInternalServerError, lerr)
			return
		}

		selected := make(map[string]bool, len(data.SeedIDs))
		for _, id := range data.SeedIDs {
			selected[id] = true
		}

		web.FormError(c, d, pageIndex, gin.H{
			"seeds":    seeds,
			"query":    "",
			"selected": selected,
			"address":  data.Address,
		}, err)
		return
	}

	web.Render(c, d, http.StatusOK, "seeds_contact", gin.H{"links": links})
}

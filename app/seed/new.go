// Package seed contains the pages of the seed listings
package seed

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	pageNew    = "seeds_new"
	fieldImage = "image"
	minePath   = "/seeds/mine"
)

func NewForm(c *gin.Context, d *internal.Deps) {
	web.Render(c, d, http.StatusOK, pageNew, gin.H{"form": service.SeedInput{}})
}

func SeedCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)
	userID := c.GetString(middleware.UserIDKey)

	var data service.SeedInput
	if err := c.ShouldBind(&data); err != nil {
		web.FormError(c, d, pageNew, gin.H{"form": data}, err)
		return
	}

	image, err := web.ReadUpload(c, fieldImage)
	if err != nil {
		web.FormError(c, d, pageNew, gin.H{"form": data}, err)
		return
	}

	seed, err := d.Seeds.Create(c.Request.Context(), userID, data, image)
	if err != nil {
		web.FormError(c, d, pageNew, gin.H{"form": data}, err)
		return
	}

	zap.L().Debug("Seed listed", zap.String("seedID", seed.ID), zap.String("userID", userID), zap.String("requestID", requestID))

	d.Flashes.Add(c, "Listing created")
	c.Redirect(http.StatusSeeOther, minePath)
}

package seed

import (
	"errors"
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/apperr"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pageEdit = "seeds_edit"

// notOwned reports errors that must look the same to the caller whether
// the listing is missing or belongs to someone else
func notOwned(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden)
}

func EditForm(c *gin.Context, d *internal.Deps) {
	userID := c.GetString(middleware.UserIDKey)

	seed, err := d.Seeds.GetOwned(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if notOwned(err) {
			c.Redirect(http.StatusSeeOther, minePath)
			return
		}

		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	web.Render(c, d, http.StatusOK, pageEdit, gin.H{
		"seed": seed,
		"form": service.SeedInput{
			PlantType:          seed.PlantType,
			VarietyName:        seed.VarietyName,
			VarietyDescription: seed.VarietyDescription,
		},
	})
}

func SeedEdit(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)
	userID := c.GetString(middleware.UserIDKey)
	seedID := c.Param("id")

	seed, err := d.Seeds.GetOwned(c.Request.Context(), seedID, userID)
	if err != nil {
		if notOwned(err) {
			zap.L().Debug("Refused to edit seed", zap.String("seedID", seedID), zap.String("userID", userID), zap.String("requestID", requestID))
			c.Redirect(http.StatusSeeOther, minePath)
			return
		}

		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	var data service.SeedInput
	if err := c.ShouldBind(&data); err != nil {
		web.FormError(c, d, pageEdit, gin.H{"seed": seed, "form": data}, err)
		return
	}

	image, err := web.ReadUpload(c, fieldImage)
	if err != nil {
		web.FormError(c, d, pageEdit, gin.H{"seed": seed, "form": data}, err)
		return
	}

	// A form post always carries every field
	update := service.SeedUpdate{
		PlantType:          &data.PlantType,
		VarietyName:        &data.VarietyName,
		VarietyDescription: &data.VarietyDescription,
	}

	if _, err := d.Seeds.Update(c.Request.Context(), seedID, userID, update, image); err != nil {
		if notOwned(err) {
			c.Redirect(http.StatusSeeOther, minePath)
			return
		}

		web.FormError(c, d, pageEdit, gin.H{"seed": seed, "form": data}, err)
		return
	}

	d.Flashes.Add(c, "Listing updated")
	c.Redirect(http.StatusSeeOther, minePath)
}

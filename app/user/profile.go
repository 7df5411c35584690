package user

import (
	"net/http"

	"bitwise74/seed-swap/app/web"
	"bitwise74/seed-swap/internal"
	"bitwise74/seed-swap/internal/service"
	"bitwise74/seed-swap/pkg/middleware"

	"github.com/gin-gonic/gin"
)

const pageProfile = "profile_edit"

func ProfileForm(c *gin.Context, d *internal.Deps) {
	userID := c.GetString(middleware.UserIDKey)

	user, err := d.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		web.ErrorPage(c, d, web.StatusOf(err), err)
		return
	}

	web.Render(c, d, http.StatusOK, pageProfile, gin.H{
		"user": user,
		"form": service.ProfileInput{
			Username: user.Username,
			Email:    user.Email,
			Location: user.Location,
			Bio:      user.Bio,
		},
	})
}

func ProfileUpdate(c *gin.Context, d *internal.Deps) {
	userID := c.GetString(middleware.UserIDKey)

	user, err := d.Auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		web.ErrorPage(c, d, web.StatusOf(err), err)
		return
	}

	var data service.ProfileInput
	if err := c.ShouldBind(&data); err != nil {
		web.FormError(c, d, pageProfile, gin.H{"user": user, "form": data}, err)
		return
	}

	image, err := web.ReadUpload(c, fieldAvatar)
	if err != nil {
		web.FormError(c, d, pageProfile, gin.H{"user": user, "form": data}, err)
		return
	}

	if _, err := d.Auth.UpdateProfile(c.Request.Context(), userID, data, image); err != nil {
		web.FormError(c, d, pageProfile, gin.H{"user": user, "form": data}, err)
		return
	}

	d.Flashes.Add(c, "Profile updated")
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

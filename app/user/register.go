package user

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
	pageRegister   = "register"
	fieldAvatar    = "profileImage"
	afterLoginPath = "/dashboard"
)

func RegisterForm(c *gin.Context, d *internal.Deps) {
	if c.GetString(middleware.UserIDKey) != "" {
		c.Redirect(http.StatusSeeOther, afterLoginPath)
		return
	}

	web.Render(c, d, http.StatusOK, pageRegister, gin.H{"form": service.RegisterInput{}})
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)

	var data service.RegisterInput
	if err := c.ShouldBind(&data); err != nil {
		web.FormError(c, d, pageRegister, gin.H{"form": data}, err)
		return
	}

	// Never echo the password back into the form
	form := data
	form.Password = ""

	image, err := web.ReadUpload(c, fieldAvatar)
	if err != nil {
		web.FormError(c, d, pageRegister, gin.H{"form": form}, err)
		return
	}

	user, err := d.Auth.Register(c.Request.Context(), data, image)
	if err != nil {
		zap.L().Debug("Registration refused", zap.Error(err), zap.String("requestID", requestID))
		web.FormError(c, d, pageRegister, gin.H{"form": form}, err)
		return
	}

	if _, err := d.Sessions.Start(c, user.ID); err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	zap.L().Info("User registered", zap.String("userID", user.ID), zap.String("requestID", requestID))
	c.Redirect(http.StatusSeeOther, afterLoginPath)
}

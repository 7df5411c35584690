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

const pageLogin = "login"

func LoginForm(c *gin.Context, d *internal.Deps) {
	if c.GetString(middleware.UserIDKey) != "" {
		c.Redirect(http.StatusSeeOther, afterLoginPath)
		return
	}

	web.Render(c, d, http.StatusOK, pageLogin, gin.H{"form": service.LoginInput{}})
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString(middleware.RequestIDKey)

	var data service.LoginInput
	if err := c.ShouldBind(&data); err != nil {
		web.FormError(c, d, pageLogin, gin.H{"form": service.LoginInput{}}, err)
		return
	}

	form := service.LoginInput{Email: data.Email}

	user, err := d.Auth.Login(c.Request.Context(), data)
	if err != nil {
		web.FormError(c, d, pageLogin, gin.H{"form": form}, err)
		return
	}

	// Start always issues a fresh session ID
	if _, err := d.Sessions.Start(c, user.ID); err != nil {
		web.ErrorPage(c, d, http.StatusInternalServerError, err)
		return
	}

	zap.L().Debug("User logged in", zap.String("userID", user.ID), zap.String("requestID", requestID))
	c.Redirect(http.StatusSeeOther, afterLoginPath)
}

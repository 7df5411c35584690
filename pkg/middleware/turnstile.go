package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TurnstileFormField is the field the Turnstile widget adds to forms
const TurnstileFormField = "cf-turnstile-response"

type TurnstileVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// NewTurnstileMiddleware checks the Turnstile token of the request. A nil
// verifier turns the check off.
func NewTurnstileMiddleware(v TurnstileVerifier, reject RejectFunc) gin.HandlerFunc {
	reject = orJSON(reject)

	return func(c *gin.Context) {
		if v == nil || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		token := c.PostForm(TurnstileFormField)
		if token == "" {
			token = c.GetHeader("TurnstileToken")
		}

		if token == "" {
			reject(c, http.StatusBadRequest, "Missing or invalid turnstile token")
			return
		}

		ok, err := v.Verify(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			zap.L().Error("Failed to verify turnstile token", zap.Error(err), zap.String("requestID", c.GetString(RequestIDKey)))
			reject(c, http.StatusServiceUnavailable, "Bot check is unavailable, please try again later")
			return
		}

		if !ok {
			reject(c, http.StatusForbidden, "Bot check failed, please try again")
			return
		}

		c.Next()
	}
}

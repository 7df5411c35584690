package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const msgBodyTooLarge = "Request body size exceeds limit"

// BodySizeLimiter rejects requests whose body is larger than maxBytes.
// Handlers that hit the limit while reading should report it through
// c.Error so the response can be replaced.
func BodySizeLimiter(maxBytes int64, reject RejectFunc) gin.HandlerFunc {
	reject = orJSON(reject)

	return func(c *gin.Context) {
		// Fast reject for legit requests
		if c.Request.ContentLength > maxBytes {
			reject(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()

		if last := c.Errors.Last(); last != nil && IsBodyTooLarge(last.Err) && !c.Writer.Written() {
			reject(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		}
	}
}

// IsBodyTooLarge reports whether err comes from reading past the body limit
func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

package middleware

import (
	"net/http"

	"edu-learning-platform/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects oversized request bodies before any handler runs.
// Document uploads are the only large payloads; everything else is small JSON.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				utils.ErrValidation,
				"Request body exceeds maximum size",
				gin.H{
					"max_size": maxSize,
					"received": c.Request.ContentLength,
				})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

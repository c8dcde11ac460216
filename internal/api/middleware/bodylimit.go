package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipart boundaries, headers and the small form fields sent with a file
const uploadOverhead = 64 << 10

// UploadLimit middleware caps the request body of a file upload route at
// maxFileSize plus room for the multipart framing
func UploadLimit(maxFileSize int64) gin.HandlerFunc {
	limit := maxFileSize + uploadOverhead

	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":   "file_too_large",
				"message": "Request body too large",
			})
			return
		}

		// chunked bodies are cut off while the form is parsed
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

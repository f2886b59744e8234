package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// BodyLimit rejects declared oversize bodies and caps streamed ones
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

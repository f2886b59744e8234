package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/interfaces/http/dto"
)

// PlatformKeyHeader carries the operator key of tenant bootstrap routes
const PlatformKeyHeader = "X-Platform-Key"

// RequirePlatformKey guards operator routes. An empty key disables them.
func RequirePlatformKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "Platform routes are disabled")
			return
		}
		got := c.GetHeader(PlatformKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid platform key")
			return
		}
		c.Next()
	}
}

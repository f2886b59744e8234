package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequireRole lets through users holding one of the given roles
func RequireRole(log *zap.Logger, roles ...identity.Role) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasRole(names...) {
			log.Warn("Role check failed",
				zap.String("user_id", claims.UserID),
				zap.String("role", claims.Role),
				zap.Strings("required", names),
				zap.String("path", c.Request.URL.Path),
			)
			abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: insufficient role")
			return
		}
		c.Next()
	}
}

// RequireManager is RequireRole for admins and managers
func RequireManager(log *zap.Logger) gin.HandlerFunc {
	return RequireRole(log, identity.RoleAdmin, identity.RoleManager)
}

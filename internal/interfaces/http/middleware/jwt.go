package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/petshop/erp/internal/infrastructure/auth"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	JWTRoleKey     = "jwt_role"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// Revocations is optional; lookups that fail let the request through
	Revocations auth.RevocationStore
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	// SkipPathPrefixes are path prefixes served without a token
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultJWTConfig returns the routes reachable without a token
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/tenants",
		},
		SkipPathPrefixes: []string{
			"/webhooks/",
			"/api/v1/tenants/",
		},
	}
}

// JWTAuthMiddlewareWithConfig validates the bearer token and stores its claims
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(cfg.SkipPaths, path) {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			handleAuthError(c, log, auth.ErrInvalidToken, "missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			handleAuthError(c, log, auth.ErrInvalidToken, "invalid authorization header format")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			handleAuthError(c, log, err, "token validation failed")
			return
		}

		if cfg.Revocations != nil {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims)
			if err != nil {
				log.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.String("user_id", claims.UserID),
					zap.Error(err),
				)
			} else if revoked {
				handleAuthError(c, log, auth.ErrTokenRevoked, "token revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)
		c.Set(JWTRoleKey, claims.Role)

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func handleAuthError(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := "UNAUTHORIZED", "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, message = "TOKEN_REVOKED", "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidTokenType), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = "INVALID_TOKEN", "Invalid token"
	}
	abort(c, http.StatusUnauthorized, code, message)
}

// GetJWTClaims returns the validated claims, or nil on public routes
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user id
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTTenantID returns the tenant id carried by the token
func GetJWTTenantID(c *gin.Context) string {
	return c.GetString(JWTTenantIDKey)
}

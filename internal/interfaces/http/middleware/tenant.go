package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/petshop/erp/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// TenantIDKey holds the resolved tenant id on the gin context
const TenantIDKey = "tenant_id"

// TenantValidator rejects unknown or suspended tenants
type TenantValidator interface {
	ValidateTenant(ctx context.Context, id uuid.UUID) error
}

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// SkipPaths and SkipPathPrefixes are served without a tenant
	SkipPaths        []string
	SkipPathPrefixes []string
	Validator        TenantValidator
	Logger           *zap.Logger
}

// DefaultTenantConfig mirrors the public routes of DefaultJWTConfig
func DefaultTenantConfig(validator TenantValidator, log *zap.Logger) TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths:        []string{"/health", "/api/v1/auth/login", "/api/v1/auth/refresh", "/api/v1/tenants"},
		SkipPathPrefixes: []string{"/webhooks/", "/api/v1/tenants/"},
		Validator:        validator,
		Logger:           log,
	}
}

// TenantMiddlewareWithConfig binds the tenant of the access token to the
// request context. Tenants are never taken from headers, so a caller can only
// reach the rows of the tenant that issued its token.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
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

		raw := GetJWTTenantID(c)
		if raw == "" {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTenantMissing, "Tenant identification required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			abort(c, http.StatusUnauthorized, dto.ErrCodeTenantMissing, "Invalid tenant ID format")
			return
		}

		if cfg.Validator != nil {
			if err := cfg.Validator.ValidateTenant(c.Request.Context(), tenantID); err != nil {
				log.Warn("Tenant validation failed", zap.String("tenant_id", raw), zap.Error(err))
				var domainErr *shared.DomainError
				if errors.As(err, &domainErr) {
					abort(c, dto.GetHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
					return
				}
				abort(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Tenant could not be verified")
				return
			}
		}

		c.Set(TenantIDKey, raw)
		ctx := tenant.ContextWithTenant(c.Request.Context(), tenantID)
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), raw)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID returns the tenant bound by TenantMiddlewareWithConfig
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(TenantIDKey)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// TenantStatusLookup loads a tenant's status
type TenantStatusLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error)
}

// CachingTenantValidator checks tenant status through a short-lived cache
type CachingTenantValidator struct {
	lookup TenantStatusLookup
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]tenantEntry
}

type tenantEntry struct {
	err     error
	expires time.Time
}

// NewCachingTenantValidator creates a validator; ttl <= 0 disables caching
func NewCachingTenantValidator(lookup TenantStatusLookup, ttl time.Duration) *CachingTenantValidator {
	return &CachingTenantValidator{
		lookup:  lookup,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]tenantEntry),
	}
}

// ValidateTenant implements TenantValidator
func (v *CachingTenantValidator) ValidateTenant(ctx context.Context, id uuid.UUID) error {
	now := v.now()
	v.mu.Lock()
	if e, ok := v.entries[id]; ok && now.Before(e.expires) {
		v.mu.Unlock()
		return e.err
	}
	v.mu.Unlock()

	t, err := v.lookup.FindByID(tenant.WithSystemScope(ctx, "tenant status"), id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		err = shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found")
	case err != nil:
		// infrastructure failures are not cached
		return err
	case t.Status != identity.TenantStatusActive:
		err = shared.NewDomainError("TENANT_SUSPENDED", "Tenant is suspended")
	}

	if v.ttl > 0 {
		v.mu.Lock()
		v.entries[id] = tenantEntry{err: err, expires: now.Add(v.ttl)}
		v.mu.Unlock()
	}
	return err
}

// Forget drops a cached status, used after suspending or activating a tenant
func (v *CachingTenantValidator) Forget(id uuid.UUID) {
	v.mu.Lock()
	delete(v.entries, id)
	v.mu.Unlock()
}

// Package tenant enforces multi-tenant row isolation for GORM and raw SQL.
//
// The tenant ID travels in the request context (logger.WithTenantID). GORM
// callbacks add WHERE tenant_id = ? to every query, update and delete on a
// tenant-owned table and stamp tenant_id on inserts. Hand-written SQL is
// checked by SQLGuard instead. Cross-tenant work must opt out explicitly
// with WithSystemScope.
//
// Usage:
//
//	tdb := tenant.NewTenantDB(gormDB, tenant.DefaultConfig())
//	tdb.WithContext(ctx).Find(&clients) // WHERE clients.tenant_id = '...' is added
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// ErrInvalidTenantID is returned when tenant_id format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// ErrTenantMismatch is returned when a row is written with another tenant's id
var ErrTenantMismatch = shared.ErrTenantMismatch

// Config holds configuration for tenant scoping
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required rejects statements on tenant-owned tables without a tenant (default: true)
	Required bool
}

// DefaultConfig returns the fail-closed configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     true,
	}
}

func (c Config) column() string {
	if c.TenantColumn == "" {
		return "tenant_id"
	}
	return c.TenantColumn
}

type systemScopeKey struct{}

// WithSystemScope marks ctx as allowed to touch every tenant's rows.
// Each opt-out is logged with its reason.
func WithSystemScope(ctx context.Context, reason string) context.Context {
	logger.L(ctx).Info("Entering system scope", zap.String("reason", reason))
	return context.WithValue(ctx, systemScopeKey{}, reason)
}

// IsSystemScope reports whether ctx was created by WithSystemScope
func IsSystemScope(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	_, ok := ctx.Value(systemScopeKey{}).(string)
	return ok
}

// LeaveSystemScope returns ctx with the system-scope marker masked, so work
// fanned out per tenant is filtered again
func LeaveSystemScope(ctx context.Context) context.Context {
	if !IsSystemScope(ctx) {
		return ctx
	}
	return context.WithValue(ctx, systemScopeKey{}, nil)
}

// SystemScopeReason returns the reason given to WithSystemScope
func SystemScopeReason(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reason, _ := ctx.Value(systemScopeKey{}).(string)
	return reason
}

// ContextWithTenant returns ctx carrying tenantID
func ContextWithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	ctx, _ = logger.WithTenantID(ctx, nil, tenantID.String())
	return ctx
}

// FromContext returns the tenant in ctx. ok is false when none is set.
func FromContext(ctx context.Context) (id uuid.UUID, ok bool, err error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err = uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false, ErrInvalidTenantID
	}
	return id, true, nil
}

// TenantDB binds GORM sessions to the tenant carried by a context.
// Filtering itself is done by the callbacks; TenantDB fails fast when the
// context cannot be scoped.
type TenantDB struct {
	db  *gorm.DB
	cfg Config
}

// NewTenantDB creates a TenantDB
func NewTenantDB(db *gorm.DB, cfg Config) *TenantDB {
	cfg.TenantColumn = cfg.column()
	return &TenantDB{db: db, cfg: cfg}
}

// WithContext returns a session scoped to the tenant in ctx. Without a tenant
// (and outside system scope) the session carries ErrTenantIDRequired when
// tenants are required.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	db := t.db.WithContext(ctx)
	if IsSystemScope(ctx) {
		return db
	}
	if _, ok, err := FromContext(ctx); err != nil {
		_ = db.AddError(err)
	} else if !ok && t.cfg.Required {
		_ = db.AddError(ErrTenantIDRequired)
	}
	return db
}

// WithTenant returns a session scoped to tenantID regardless of ctx's tenant
func (t *TenantDB) WithTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	if tenantID == uuid.Nil {
		db := t.db.WithContext(ctx)
		_ = db.AddError(ErrTenantIDRequired)
		return db
	}
	return t.db.WithContext(ContextWithTenant(ctx, tenantID))
}

// ForTenant is WithTenant for callers holding the tenant as a string
func (t *TenantDB) ForTenant(ctx context.Context, tenantID string) *gorm.DB {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		db := t.db.WithContext(ctx)
		_ = db.AddError(ErrInvalidTenantID)
		return db
	}
	return t.WithTenant(ctx, id)
}

// Shared returns a session for tables without a tenant column (tenants,
// projection checkpoints). Callbacks still reject tenant-owned tables.
func (t *TenantDB) Shared(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

// Transaction runs fn in a transaction bound to ctx's tenant
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := t.WithContext(ctx)
	if db.Error != nil {
		return db.Error
	}
	return db.Transaction(fn)
}

// Unscoped returns a system-scoped session that may touch every tenant.
// reason is logged.
func (t *TenantDB) Unscoped(ctx context.Context, reason string) *gorm.DB {
	return t.db.WithContext(WithSystemScope(ctx, reason))
}

// DB returns the underlying handle
func (t *TenantDB) DB() *gorm.DB {
	return t.db
}

// Config returns the scoping configuration
func (t *TenantDB) Config() Config {
	return t.cfg
}

func tenantString(v any) string {
	switch id := v.(type) {
	case uuid.UUID:
		if id == uuid.Nil {
			return ""
		}
		return id.String()
	case *uuid.UUID:
		if id == nil || *id == uuid.Nil {
			return ""
		}
		return id.String()
	case string:
		return id
	case *string:
		if id == nil {
			return ""
		}
		return *id
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
)

// TenantRepository persists tenants. Tenants are looked up across the whole
// database, so callers use a system-scoped context.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindByWhatsAppPhoneID(ctx context.Context, phoneID string) (*Tenant, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	FindAll(ctx context.Context) ([]Tenant, error)
	Save(ctx context.Context, tenant *Tenant) error
}

// UserRepository persists users of the context tenant
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]User, int64, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *User) error
}

package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM.
// The tenants table is shared, so lookups do not need a tenant in the context.
type GormTenantRepository struct {
	baseRepository
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormTenantRepository {
	return &GormTenantRepository{baseRepository{db: db, recorder: recorder}}
}

func (r *GormTenantRepository) session(ctx context.Context) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return r.db.Shared(ctx)
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := first(r.session(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a tenant by its slug
func (r *GormTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := first(r.session(ctx).Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWhatsAppPhoneID finds the tenant that owns a WhatsApp Cloud API number
func (r *GormTenantRepository) FindByWhatsAppPhoneID(ctx context.Context, phoneID string) (*identity.Tenant, error) {
	if phoneID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.TenantModel
	if err := first(r.session(ctx).Where("whatsapp_phone_id = ?", phoneID), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsBySlug checks if a slug is taken
func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	return exists(r.session(ctx).Model(&models.TenantModel{}).
		Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))))
}

// FindAll returns every tenant ordered by name
func (r *GormTenantRepository) FindAll(ctx context.Context) ([]identity.Tenant, error) {
	var rows []models.TenantModel
	if err := r.session(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	tenants := make([]identity.Tenant, len(rows))
	for i := range rows {
		tenants[i] = *rows[i].ToDomain()
	}
	return tenants, nil
}

// Save creates or updates a tenant. Its events are recorded under the tenant's own id,
// so the caller must run in system scope or with the tenant in the context.
func (r *GormTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return r.saveAggregate(ctx, models.TenantModelFromDomain(t), &t.BaseAggregateRoot, nil)
}

var _ identity.TenantRepository = (*GormTenantRepository)(nil)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	baseRepository
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *tenant.TenantDB, recorder shared.EventRecorder) *GormUserRepository {
	return &GormUserRepository{baseRepository{db: db, recorder: recorder}}
}

// FindByID finds a user by its ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := first(r.conn(ctx).Where("id = ?", id), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a user by email within the context tenant
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var model models.UserModel
	if err := first(r.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))), &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists users matching the filter
func (r *GormUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, int64, error) {
	query := r.conn(ctx).Model(&models.UserModel{})
	if filter.Search != "" {
		p := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR email LIKE ?)", p, p)
	}
	if role, ok := filter.Filters["role"].(string); ok && role != "" {
		query = query.Where("role = ?", role)
	}
	if active, ok := filter.Filters["active"].(bool); ok {
		query = query.Where("active = ?", active)
	}

	query, total, err := paginate(query, filter, UserSortFields, "created_at")
	if err != nil {
		return nil, 0, err
	}
	var rows []models.UserModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	users := make([]identity.User, len(rows))
	for i := range rows {
		users[i] = *rows[i].ToDomain()
	}
	return users, total, nil
}

// ExistsByEmail checks if an email is taken within the context tenant
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(r.conn(ctx).Model(&models.UserModel{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))))
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, u *identity.User) error {
	return r.saveAggregate(ctx, models.UserModelFromDomain(u), &u.BaseAggregateRoot, nil)
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
)

// TenantService onboards and administers pet shops. Tenants live in a shared
// table, so every lookup runs in system scope.
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	transactor shared.Transactor
	logger     *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	transactor shared.Transactor,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		transactor: transactor,
		logger:     logger,
	}
}

// Create creates a tenant and its admin user in one transaction
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*CreateTenantResponse, error) {
	sys := tenant.WithSystemScope(ctx, "tenant bootstrap")

	exists, err := s.tenantRepo.ExistsBySlug(sys, req.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SLUG_TAKEN", "Slug is already in use")
	}

	t, err := identity.NewTenant(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}
	t.Document = req.Document
	t.WhatsAppPhoneID = req.WhatsAppPhoneID
	if req.Latitude != nil && req.Longitude != nil {
		loc, err := valueobject.NewCoordinates(*req.Latitude, *req.Longitude)
		if err != nil {
			return nil, shared.WrapDomainError("INVALID_LOCATION", "Shop location is invalid", err)
		}
		t.ShopLocation = loc
	}

	admin, err := identity.NewUser(t.ID, req.AdminName, req.AdminEmail, req.AdminPassword, identity.RoleAdmin)
	if err != nil {
		return nil, err
	}

	err = s.transactor.WithinTransaction(sys, func(txCtx context.Context) error {
		if err := s.tenantRepo.Save(txCtx, t); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return shared.NewDomainError("SLUG_TAKEN", "Slug is already in use")
			}
			return err
		}
		// the admin is written as the new tenant, not in system scope
		return s.userRepo.Save(tenant.ContextWithTenant(tenant.LeaveSystemScope(txCtx), t.ID), admin)
	})
	if err != nil {
		s.logger.Error("failed to create tenant", zap.String("slug", req.Slug), zap.Error(err))
		return nil, err
	}

	s.logger.Info("tenant created",
		zap.String("tenant_id", t.ID.String()),
		zap.String("slug", t.Slug),
		zap.String("admin_id", admin.ID.String()),
	)
	return &CreateTenantResponse{
		Tenant: ToTenantResponse(t),
		Admin:  ToUserResponse(admin),
	}, nil
}

// GetByID returns a tenant
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	t, err := s.tenantRepo.FindByID(tenant.WithSystemScope(ctx, "tenant lookup"), id)
	if err != nil {
		return nil, err
	}
	resp := ToTenantResponse(t)
	return &resp, nil
}

// List returns every tenant
func (s *TenantService) List(ctx context.Context) ([]TenantResponse, error) {
	tenants, err := s.tenantRepo.FindAll(tenant.WithSystemScope(ctx, "tenant listing"))
	if err != nil {
		return nil, err
	}
	out := make([]TenantResponse, len(tenants))
	for i := range tenants {
		out[i] = ToTenantResponse(&tenants[i])
	}
	return out, nil
}

// UpdateSettings changes the shop location or the linked WhatsApp number
func (s *TenantService) UpdateSettings(ctx context.Context, id uuid.UUID, req UpdateTenantSettingsRequest) (*TenantResponse, error) {
	sys := tenant.WithSystemScope(ctx, "tenant settings")
	t, err := s.tenantRepo.FindByID(sys, id)
	if err != nil {
		return nil, err
	}

	if req.Latitude != nil && req.Longitude != nil {
		loc, err := valueobject.NewCoordinates(*req.Latitude, *req.Longitude)
		if err != nil {
			return nil, shared.WrapDomainError("INVALID_LOCATION", "Shop location is invalid", err)
		}
		t.SetShopLocation(loc)
	}
	if req.WhatsAppPhoneID != nil {
		t.LinkWhatsApp(*req.WhatsAppPhoneID)
	}

	if err := s.tenantRepo.Save(sys, t); err != nil {
		return nil, err
	}
	resp := ToTenantResponse(t)
	return &resp, nil
}

// Suspend blocks logins for a tenant
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID) error {
	return s.changeStatus(ctx, id, (*identity.Tenant).Suspend)
}

// Activate re-enables a suspended tenant
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) error {
	return s.changeStatus(ctx, id, (*identity.Tenant).Activate)
}

func (s *TenantService) changeStatus(ctx context.Context, id uuid.UUID, change func(*identity.Tenant) error) error {
	sys := tenant.WithSystemScope(ctx, "tenant status")
	t, err := s.tenantRepo.FindByID(sys, id)
	if err != nil {
		return err
	}
	if err := change(t); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(sys, t); err != nil {
		return err
	}
	s.logger.Info("tenant status changed",
		zap.String("tenant_id", t.ID.String()),
		zap.String("status", string(t.Status)),
	)
	return nil
}

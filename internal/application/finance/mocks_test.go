package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/mock"
)

type MockReceivableRepository struct {
	mock.Mock
}

func (m *MockReceivableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Receivable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Receivable), args.Error(1)
}

func (m *MockReceivableRepository) FindBySale(ctx context.Context, saleID uuid.UUID) (*finance.Receivable, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Receivable), args.Error(1)
}

func (m *MockReceivableRepository) ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, saleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceivableRepository) FindAll(ctx context.Context, filter finance.TitleFilter) ([]finance.Receivable, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.Receivable), args.Get(1).(int64), args.Error(2)
}

func (m *MockReceivableRepository) Save(ctx context.Context, r *finance.Receivable) error {
	return m.Called(ctx, r).Error(0)
}

type MockPayableRepository struct {
	mock.Mock
}

func (m *MockPayableRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payable, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Payable), args.Error(1)
}

func (m *MockPayableRepository) FindAll(ctx context.Context, filter finance.TitleFilter) ([]finance.Payable, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.Payable), args.Get(1).(int64), args.Error(2)
}

func (m *MockPayableRepository) Save(ctx context.Context, p *finance.Payable) error {
	return m.Called(ctx, p).Error(0)
}

type MockCommissionRepository struct {
	mock.Mock
}

func (m *MockCommissionRepository) FindBySale(ctx context.Context, saleID uuid.UUID) (*finance.Commission, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Commission), args.Error(1)
}

func (m *MockCommissionRepository) ExistsBySale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	args := m.Called(ctx, saleID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCommissionRepository) FindAll(ctx context.Context, filter finance.CommissionFilter) ([]finance.Commission, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.Commission), args.Get(1).(int64), args.Error(2)
}

func (m *MockCommissionRepository) FindPending(ctx context.Context, sellerID uuid.UUID, from, to time.Time) ([]finance.Commission, error) {
	args := m.Called(ctx, sellerID, from, to)
	return args.Get(0).([]finance.Commission), args.Error(1)
}

func (m *MockCommissionRepository) Save(ctx context.Context, c *finance.Commission) error {
	return m.Called(ctx, c).Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]identity.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByWhatsAppPhoneID(ctx context.Context, phoneID string) (*identity.Tenant, error) {
	args := m.Called(ctx, phoneID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) FindAll(ctx context.Context) ([]identity.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]identity.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Client), args.Error(1)
}

func (m *MockClientRepository) FindByPhone(ctx context.Context, phone valueobject.Phone) (*partner.Client, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Client, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Client), args.Get(1).(int64), args.Error(2)
}

func (m *MockClientRepository) Save(ctx context.Context, client *partner.Client) error {
	return m.Called(ctx, client).Error(0)
}

func (m *MockClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockClientRepository) ListPets(ctx context.Context, clientID uuid.UUID) ([]partner.Pet, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).([]partner.Pet), args.Error(1)
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

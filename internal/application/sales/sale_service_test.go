package sales

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindAll(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sales.Sale), args.Get(1).(int64), args.Error(2)
}

func (m *MockSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
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

type fixture struct {
	sales    *MockSaleRepository
	products *MockProductRepository
	clients  *MockClientRepository
	svc      *SaleService
}

func newFixture() *fixture {
	f := &fixture{
		sales:    new(MockSaleRepository),
		products: new(MockProductRepository),
		clients:  new(MockClientRepository),
	}
	f.svc = NewSaleService(f.sales, f.products, f.clients, zap.NewNop())
	return f
}

func newProduct(t *testing.T, tenantID uuid.UUID, sku string, kind catalog.ProductKind, price, cost string, stock int64) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(tenantID, sku, sku+" item", kind,
		valueobject.NewMoney(decimal.RequireFromString(price)),
		valueobject.NewMoney(decimal.RequireFromString(cost)))
	require.NoError(t, err)
	p.Stock = decimal.NewFromInt(stock)
	p.MarkPersisted()
	return *p
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestSaleService_Checkout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenantID, sellerID := uuid.New(), uuid.New()

	food := newProduct(t, tenantID, "RACAO-10KG", catalog.ProductKindProduct, "150.00", "90.00", 10)
	bath := newProduct(t, tenantID, "BANHO-P", catalog.ProductKindService, "60.00", "20.00", 0)

	f.products.On("FindByIDs", ctx, []uuid.UUID{food.ID, bath.ID}).Return([]catalog.Product{food, bath}, nil)
	f.sales.On("Save", ctx, mock.AnythingOfType("*sales.Sale")).Return(nil)

	resp, err := f.svc.Checkout(ctx, tenantID, sellerID, CheckoutRequest{
		PaymentMethod: "pix",
		Discount:      decPtr("10.00"),
		Notes:         "delivery on friday",
		Items: []CheckoutItemRequest{
			{ProductID: food.ID, Quantity: dec("2"), Discount: decPtr("5.00")},
			{ProductID: bath.ID, Quantity: dec("1")},
		},
	})

	require.NoError(t, err)
	assert.True(t, dec("355").Equal(resp.Subtotal), "subtotal %s", resp.Subtotal)
	assert.True(t, dec("345").Equal(resp.Total), "total %s", resp.Total)
	assert.True(t, dec("200").Equal(resp.CostTotal), "cost %s", resp.CostTotal)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, "delivery on friday", resp.Notes)
	assert.Equal(t, sellerID, resp.SellerID)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "RACAO-10KG", resp.Items[0].SKU)

	saved := f.sales.Calls[0].Arguments.Get(1).(*sales.Sale)
	events := saved.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, sales.EventTypeSaleCompleted, events[0].EventType())
	f.sales.AssertExpectations(t)
}

func TestSaleService_CheckoutInsufficientStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenantID := uuid.New()

	food := newProduct(t, tenantID, "RACAO-1KG", catalog.ProductKindProduct, "30.00", "18.00", 3)
	f.products.On("FindByIDs", ctx, []uuid.UUID{food.ID}).Return([]catalog.Product{food}, nil)

	// two lines of the same product add up past the stock on hand
	_, err := f.svc.Checkout(ctx, tenantID, uuid.New(), CheckoutRequest{
		PaymentMethod: "cash",
		Items: []CheckoutItemRequest{
			{ProductID: food.ID, Quantity: dec("2")},
			{ProductID: food.ID, Quantity: dec("2")},
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSaleService_CheckoutServiceIgnoresStock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenantID := uuid.New()

	grooming := newProduct(t, tenantID, "TOSA", catalog.ProductKindService, "80.00", "0", 0)
	f.products.On("FindByIDs", ctx, []uuid.UUID{grooming.ID}).Return([]catalog.Product{grooming}, nil)
	f.sales.On("Save", ctx, mock.Anything).Return(nil)

	resp, err := f.svc.Checkout(ctx, tenantID, uuid.New(), CheckoutRequest{
		PaymentMethod: "debit",
		Items:         []CheckoutItemRequest{{ProductID: grooming.ID, Quantity: dec("1")}},
	})

	require.NoError(t, err)
	assert.True(t, dec("80").Equal(resp.Total))
}

func TestSaleService_CheckoutRejections(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name  string
		setup func(t *testing.T, f *fixture) CheckoutRequest
		code  string
	}{
		{
			name: "account sale without client",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				p := newProduct(t, tenantID, "COLEIRA", catalog.ProductKindProduct, "25.00", "10.00", 5)
				f.products.On("FindByIDs", mock.Anything, []uuid.UUID{p.ID}).Return([]catalog.Product{p}, nil)
				return CheckoutRequest{
					PaymentMethod: "account",
					Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: dec("1")}},
				}
			},
			code: "CLIENT_REQUIRED",
		},
		{
			name: "unknown product",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				id := uuid.New()
				f.products.On("FindByIDs", mock.Anything, []uuid.UUID{id}).Return([]catalog.Product{}, nil)
				return CheckoutRequest{
					PaymentMethod: "cash",
					Items:         []CheckoutItemRequest{{ProductID: id, Quantity: dec("1")}},
				}
			},
			code: "PRODUCT_NOT_FOUND",
		},
		{
			name: "product of another tenant",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				p := newProduct(t, uuid.New(), "AREIA", catalog.ProductKindProduct, "20.00", "8.00", 50)
				f.products.On("FindByIDs", mock.Anything, []uuid.UUID{p.ID}).Return([]catalog.Product{p}, nil)
				return CheckoutRequest{
					PaymentMethod: "cash",
					Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: dec("1")}},
				}
			},
			code: "PRODUCT_NOT_FOUND",
		},
		{
			name: "inactive product",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				p := newProduct(t, tenantID, "BRINQUEDO", catalog.ProductKindProduct, "15.00", "5.00", 4)
				p.Active = false
				f.products.On("FindByIDs", mock.Anything, []uuid.UUID{p.ID}).Return([]catalog.Product{p}, nil)
				return CheckoutRequest{
					PaymentMethod: "cash",
					Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: dec("1")}},
				}
			},
			code: "PRODUCT_INACTIVE",
		},
		{
			name: "unknown client",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				clientID := uuid.New()
				f.clients.On("FindByID", mock.Anything, clientID).Return(nil, shared.ErrNotFound)
				return CheckoutRequest{
					ClientID:      &clientID,
					PaymentMethod: "account",
					Items:         []CheckoutItemRequest{{ProductID: uuid.New(), Quantity: dec("1")}},
				}
			},
			code: "CLIENT_NOT_FOUND",
		},
		{
			name: "discount above subtotal",
			setup: func(t *testing.T, f *fixture) CheckoutRequest {
				p := newProduct(t, tenantID, "PETISCO", catalog.ProductKindProduct, "10.00", "4.00", 9)
				f.products.On("FindByIDs", mock.Anything, []uuid.UUID{p.ID}).Return([]catalog.Product{p}, nil)
				return CheckoutRequest{
					PaymentMethod: "cash",
					Discount:      decPtr("11.00"),
					Items:         []CheckoutItemRequest{{ProductID: p.ID, Quantity: dec("1")}},
				}
			},
			code: "INVALID_DISCOUNT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			req := tt.setup(t, f)

			_, err := f.svc.Checkout(context.Background(), tenantID, uuid.New(), req)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func completedSale(t *testing.T, tenantID uuid.UUID) *sales.Sale {
	t.Helper()
	s, err := sales.NewSale(tenantID, uuid.New(), nil, sales.PaymentCash, valueobject.ZeroMoney(), []sales.ItemInput{{
		ProductID: uuid.New(),
		SKU:       "RACAO-3KG",
		Name:      "Ração 3kg",
		Quantity:  dec("1"),
		UnitPrice: valueobject.NewMoney(dec("59.90")),
		UnitCost:  valueobject.NewMoney(dec("35.00")),
		Discount:  valueobject.ZeroMoney(),
	}})
	require.NoError(t, err)
	s.ClearDomainEvents()
	s.MarkPersisted()
	return s
}

func TestSaleService_Cancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()
	sale := completedSale(t, tenantID)

	f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)
	f.sales.On("Save", ctx, sale).Return(nil)

	resp, err := f.svc.Cancel(ctx, tenantID, userID, sale.ID, CancelSaleRequest{Reason: "wrong product"})

	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "wrong product", resp.CancelReason)
	require.NotNil(t, resp.CancelledAt)

	events := sale.GetDomainEvents()
	require.Len(t, events, 1)
	cancelled, ok := events[0].(*sales.SaleCancelledEvent)
	require.True(t, ok)
	assert.Equal(t, userID, cancelled.CancelledBy)

	_, err = f.svc.Cancel(ctx, tenantID, userID, sale.ID, CancelSaleRequest{Reason: "again"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALREADY_CANCELLED", domainErr.Code)
	f.sales.AssertNumberOfCalls(t, "Save", 1)
}

func TestSaleService_OtherTenantIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sale := completedSale(t, uuid.New())

	f.sales.On("FindByID", ctx, sale.ID).Return(sale, nil)

	_, err := f.svc.GetByID(ctx, uuid.New(), sale.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Cancel(ctx, uuid.New(), uuid.New(), sale.ID, CancelSaleRequest{Reason: "x"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.sales.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSaleService_List(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tenantID := uuid.New()
	sellerID := uuid.New()
	sale := completedSale(t, tenantID)

	f.sales.On("FindAll", ctx, mock.MatchedBy(func(filter sales.SaleFilter) bool {
		return filter.Page == 1 && filter.PageSize == 20 &&
			filter.OrderBy == "completed_at" &&
			filter.SellerID != nil && *filter.SellerID == sellerID &&
			filter.Status == sales.SaleStatusCompleted
	})).Return([]sales.Sale{*sale}, int64(1), nil)

	page, err := f.svc.List(ctx, ListSalesRequest{SellerID: &sellerID, Status: "completed"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, sale.Number, page.Items[0].Number)
}

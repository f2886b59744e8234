package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProductRepository is a mock implementation of catalog.ProductRepository
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
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

// MockStockMovementRepository is a mock implementation of inventory.StockMovementRepository
type MockStockMovementRepository struct {
	mock.Mock
}

func (m *MockStockMovementRepository) Create(ctx context.Context, tx any, movements ...*inventory.StockMovement) error {
	args := m.Called(ctx, tx, movements)
	return args.Error(0)
}

func (m *MockStockMovementRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.StockMovement, int64, error) {
	args := m.Called(ctx, productID, filter)
	return args.Get(0).([]inventory.StockMovement), args.Get(1).(int64), args.Error(2)
}

func (m *MockStockMovementRepository) ExistsBySource(ctx context.Context, sourceID, productID uuid.UUID, movementType inventory.MovementType) (bool, error) {
	args := m.Called(ctx, sourceID, productID, movementType)
	return args.Bool(0), args.Error(1)
}

type passthroughTransactor struct{}

func (passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newStockedProduct(t *testing.T, tenantID uuid.UUID, stock, minStock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(tenantID, "RAC-001", "Ração Premium", catalog.ProductKindProduct,
		valueobject.NewMoneyFromCents(18990), valueobject.NewMoneyFromCents(12000))
	require.NoError(t, err)
	p.Stock = decimal.NewFromInt(stock)
	p.MinStock = decimal.NewFromInt(minStock)
	p.MarkPersisted()
	return p
}

func movementMatching(movementType inventory.MovementType, qty int64) any {
	return mock.MatchedBy(func(ms []*inventory.StockMovement) bool {
		return len(ms) == 1 && ms[0].Type == movementType && ms[0].Quantity.Equal(decimal.NewFromInt(qty))
	})
}

func TestInventoryService_AdjustStock(t *testing.T) {
	ctx := context.Background()
	tenantID, userID := uuid.New(), uuid.New()
	product := newStockedProduct(t, tenantID, 10, 5)

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	products.On("SaveWithLock", ctx, product).Return(nil)
	movements.On("Create", ctx, nil, movementMatching(inventory.MovementOut, -6)).Return(nil)
	svc := NewInventoryService(products, movements, passthroughTransactor{}, zap.NewNop())

	resp, err := svc.AdjustStock(ctx, tenantID, userID, AdjustStockRequest{
		ProductID: product.ID,
		Type:      "OUT",
		Quantity:  decimal.NewFromInt(6),
		Reason:    "damaged bags",
	})

	require.NoError(t, err)
	assert.True(t, resp.OnHand.Equal(decimal.NewFromInt(4)))
	assert.True(t, resp.LowStock)
	assert.Equal(t, &userID, resp.Movement.CreatedBy)

	var types []string
	for _, e := range product.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{inventory.EventTypeStockAdjusted, inventory.EventTypeStockLow}, types)
	movements.AssertExpectations(t)
}

func TestInventoryService_AdjustStockInsufficient(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	product := newStockedProduct(t, tenantID, 2, 0)

	products := new(MockProductRepository)
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	svc := NewInventoryService(products, new(MockStockMovementRepository), passthroughTransactor{}, zap.NewNop())

	_, err := svc.AdjustStock(ctx, tenantID, uuid.New(), AdjustStockRequest{
		ProductID: product.ID, Type: "OUT", Quantity: decimal.NewFromInt(3), Reason: "loss",
	})

	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	products.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestInventoryService_AdjustStockCount(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	product := newStockedProduct(t, tenantID, 12, 0)

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	products.On("SaveWithLock", ctx, product).Return(nil)
	movements.On("Create", ctx, nil, movementMatching(inventory.MovementAdjustment, -3)).Return(nil)
	svc := NewInventoryService(products, movements, passthroughTransactor{}, zap.NewNop())

	resp, err := svc.AdjustStock(ctx, tenantID, uuid.New(), AdjustStockRequest{
		ProductID: product.ID, Type: "ADJUSTMENT", Quantity: decimal.NewFromInt(9), Reason: "monthly count",
	})

	require.NoError(t, err)
	assert.True(t, resp.OnHand.Equal(decimal.NewFromInt(9)))
}

func saleSnapshot(lines ...sales.SaleLine) sales.SaleSnapshot {
	return sales.SaleSnapshot{
		SaleID:      uuid.New(),
		Number:      "V-20260310-ABCD",
		SellerID:    uuid.New(),
		CompletedAt: time.Now(),
		Lines:       lines,
	}
}

func TestSaleStockHandler_CompletedSaleTakesStock(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	product := newStockedProduct(t, tenantID, 10, 0)
	service, err := catalog.NewProduct(tenantID, "BANHO-P", "Banho", catalog.ProductKindService,
		valueobject.NewMoneyFromCents(6000), valueobject.ZeroMoney())
	require.NoError(t, err)

	snap := saleSnapshot(
		sales.SaleLine{ProductID: product.ID, Quantity: decimal.NewFromInt(2)},
		sales.SaleLine{ProductID: service.ID, Quantity: decimal.NewFromInt(1)},
		sales.SaleLine{ProductID: product.ID, Quantity: decimal.NewFromInt(1)},
	)
	event := &sales.SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCompleted, "Sale", snap.SaleID, tenantID),
		SaleSnapshot:    snap,
	}

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	movements.On("ExistsBySource", ctx, snap.SaleID, product.ID, inventory.MovementSale).Return(false, nil)
	movements.On("ExistsBySource", ctx, snap.SaleID, service.ID, inventory.MovementSale).Return(false, nil)
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	products.On("FindByID", ctx, service.ID).Return(service, nil)
	products.On("SaveWithLock", ctx, product).Return(nil)
	movements.On("Create", ctx, nil, movementMatching(inventory.MovementSale, -3)).Return(nil).Once()

	h := NewSaleStockHandler(products, movements, passthroughTransactor{}, zap.NewNop())
	require.NoError(t, h.Handle(ctx, event))

	assert.True(t, product.Stock.Equal(decimal.NewFromInt(7)), "quantities of repeated lines are summed")
	products.AssertNotCalled(t, "SaveWithLock", ctx, service)
	movements.AssertExpectations(t)
}

func TestSaleStockHandler_SkipsBookedMovements(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	product := newStockedProduct(t, tenantID, 10, 0)
	snap := saleSnapshot(sales.SaleLine{ProductID: product.ID, Quantity: decimal.NewFromInt(2)})
	event := &sales.SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCancelled, "Sale", snap.SaleID, tenantID),
		SaleSnapshot:    snap,
		Reason:          "wrong item",
	}

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	movements.On("ExistsBySource", ctx, snap.SaleID, product.ID, inventory.MovementSaleReturn).Return(true, nil)

	h := NewSaleStockHandler(products, movements, passthroughTransactor{}, zap.NewNop())
	require.NoError(t, h.Handle(ctx, event))

	products.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaleStockHandler_CancelledSaleRestoresStock(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	product := newStockedProduct(t, tenantID, 4, 0)
	snap := saleSnapshot(sales.SaleLine{ProductID: product.ID, Quantity: decimal.NewFromInt(2)})
	event := &sales.SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCancelled, "Sale", snap.SaleID, tenantID),
		SaleSnapshot:    snap,
	}

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	movements.On("ExistsBySource", ctx, snap.SaleID, product.ID, inventory.MovementSaleReturn).Return(false, nil)
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	products.On("SaveWithLock", ctx, product).Return(nil)
	movements.On("Create", ctx, nil, movementMatching(inventory.MovementSaleReturn, 2)).Return(nil)

	h := NewSaleStockHandler(products, movements, passthroughTransactor{}, zap.NewNop())
	require.NoError(t, h.Handle(ctx, event))
	assert.True(t, product.Stock.Equal(decimal.NewFromInt(6)))
}

func TestSaleStockHandler_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	stale := newStockedProduct(t, tenantID, 10, 0)
	fresh := newStockedProduct(t, tenantID, 8, 0)
	fresh.ID = stale.ID
	snap := saleSnapshot(sales.SaleLine{ProductID: stale.ID, Quantity: decimal.NewFromInt(1)})
	event := &sales.SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCompleted, "Sale", snap.SaleID, tenantID),
		SaleSnapshot:    snap,
	}

	products := new(MockProductRepository)
	movements := new(MockStockMovementRepository)
	movements.On("ExistsBySource", ctx, snap.SaleID, stale.ID, inventory.MovementSale).Return(false, nil)
	products.On("FindByID", ctx, stale.ID).Return(stale, nil).Once()
	products.On("FindByID", ctx, stale.ID).Return(fresh, nil).Once()
	products.On("SaveWithLock", ctx, stale).Return(shared.ErrConcurrencyConflict).Once()
	products.On("SaveWithLock", ctx, fresh).Return(nil).Once()
	movements.On("Create", ctx, nil, movementMatching(inventory.MovementSale, -1)).Return(nil).Once()

	h := NewSaleStockHandler(products, movements, passthroughTransactor{}, zap.NewNop())
	require.NoError(t, h.Handle(ctx, event))

	assert.True(t, fresh.Stock.Equal(decimal.NewFromInt(7)))
	products.AssertExpectations(t)
}

func TestSaleStockHandler_EventTypes(t *testing.T) {
	h := NewSaleStockHandler(nil, nil, nil, zap.NewNop())
	assert.Equal(t, []string{sales.EventTypeSaleCompleted, sales.EventTypeSaleCancelled}, h.EventTypes())
	assert.Equal(t, "inventory.sale_stock", h.Name())
}

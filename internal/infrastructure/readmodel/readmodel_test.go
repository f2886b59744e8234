package readmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/event"
	"github.com/petshop/erp/internal/infrastructure/persistence"
	"github.com/petshop/erp/internal/infrastructure/persistence/models"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type harness struct {
	db       *persistence.Database
	store    *event.GormEventStore
	recorder *event.Recorder
	engine   *Engine
	replayer *Replayer
	query    *QueryService
}

func newHarness(t *testing.T, projections ...Projection) *harness {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, persistence.AutoMigrate(context.Background(), gdb))
	db, err := persistence.Setup(gdb, persistence.Options{
		Tenant:    tenant.DefaultConfig(),
		GuardMode: tenant.GuardBlock,
	})
	require.NoError(t, err)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	store := event.NewGormEventStore(db.Tenant, serializer)
	if len(projections) == 0 {
		projections = DefaultProjections()
	}
	engine := NewEngine(db.Tenant, store, nil, projections...)
	return &harness{
		db:       db,
		store:    store,
		recorder: event.NewRecorder(store, event.NewGormOutboxRepository(db.Tenant), 0),
		engine:   engine,
		replayer: NewReplayer(db.Tenant, store, engine, serializer, 2, nil),
		query:    NewQueryService(db.Raw),
	}
}

func (h *harness) record(t *testing.T, events ...shared.DomainEvent) {
	t.Helper()
	for _, e := range events {
		ctx := tenant.ContextWithTenant(context.Background(), e.TenantID())
		require.NoError(t, h.recorder.Record(ctx, nil, e))
	}
}

// snapshot reads every projection table of every tenant
func (h *harness) snapshot(t *testing.T) map[string]any {
	t.Helper()
	db := h.db.Tenant.Unscoped(context.Background(), "test snapshot")
	var (
		daily       []models.SalesDailyModel
		clients     []models.ClientSummaryModel
		products    []models.ProductSalesModel
		commissions []models.SellerCommissionModel
		stock       []models.StockLevelModel
	)
	require.NoError(t, db.Order("tenant_id, day").Find(&daily).Error)
	require.NoError(t, db.Order("tenant_id, client_id").Find(&clients).Error)
	require.NoError(t, db.Order("tenant_id, product_id").Find(&products).Error)
	require.NoError(t, db.Order("tenant_id, seller_id, month").Find(&commissions).Error)
	require.NoError(t, db.Order("tenant_id, product_id").Find(&stock).Error)
	return map[string]any{
		"daily": daily, "clients": clients, "products": products,
		"commissions": commissions, "stock": stock,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var saleDay = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func saleSnapshot(clientID *uuid.UUID, sellerID, productID uuid.UUID, qty, lineTotal, cost, discount string) sales.SaleSnapshot {
	subtotal := dec(lineTotal)
	return sales.SaleSnapshot{
		SaleID:        uuid.New(),
		Number:        "V-1",
		ClientID:      clientID,
		SellerID:      sellerID,
		PaymentMethod: sales.PaymentPix,
		Subtotal:      subtotal,
		Discount:      dec(discount),
		Total:         subtotal.Sub(dec(discount)),
		CostTotal:     dec(cost),
		CompletedAt:   saleDay,
		Lines: []sales.SaleLine{{
			ProductID: productID,
			SKU:       "RAC-001",
			Quantity:  dec(qty),
			UnitPrice: subtotal.Div(dec(qty)),
			Total:     subtotal,
			Cost:      dec(cost),
		}},
	}
}

func completed(tenantID uuid.UUID, snap sales.SaleSnapshot) *sales.SaleCompletedEvent {
	return &sales.SaleCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCompleted, sales.AggregateTypeSale, snap.SaleID, tenantID),
		SaleSnapshot:    snap,
	}
}

func cancelled(tenantID uuid.UUID, snap sales.SaleSnapshot) *sales.SaleCancelledEvent {
	return &sales.SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCancelled, sales.AggregateTypeSale, snap.SaleID, tenantID),
		SaleSnapshot:    snap,
		Reason:          "customer gave up",
	}
}

type scenario struct {
	tenantA, tenantB  uuid.UUID
	client, seller    uuid.UUID
	product, productB uuid.UUID
	firstSale         *sales.SaleCompletedEvent
}

// seed records a small history for two tenants
func seed(t *testing.T, h *harness) scenario {
	s := scenario{
		tenantA: uuid.New(), tenantB: uuid.New(),
		client: uuid.New(), seller: uuid.New(),
		product: uuid.New(), productB: uuid.New(),
	}

	registered := &partner.ClientRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(partner.EventTypeClientRegistered, partner.AggregateTypeClient, s.client, s.tenantA),
		ClientID:        s.client,
		Name:            "Ana Souza",
		Source:          partner.ClientSourceStore,
	}
	s.firstSale = completed(s.tenantA, saleSnapshot(&s.client, s.seller, s.product, "2", "100", "40", "10"))
	walkIn := saleSnapshot(nil, s.seller, s.product, "1", "50", "20", "0")
	commission := &finance.CommissionAccruedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(finance.EventTypeCommissionAccrued, finance.AggregateTypeCommission, uuid.New(), s.tenantA),
		SellerID:        s.seller,
		SaleID:          s.firstSale.SaleID,
		SaleTotal:       dec("90"),
		Amount:          dec("4.50"),
		AccruedAt:       saleDay,
	}
	stock := &inventory.StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeStockAdjusted, catalog.AggregateTypeProduct, s.product, s.tenantA),
		ProductID:       s.product,
		SKU:             "RAC-001",
		MovementType:    inventory.MovementOut,
		Delta:           dec("-2"),
		OnHand:          dec("3"),
		MinStock:        dec("5"),
	}
	other := completed(s.tenantB, saleSnapshot(nil, uuid.New(), s.productB, "1", "70", "30", "0"))

	h.record(t, registered, s.firstSale, completed(s.tenantA, walkIn), cancelled(s.tenantA, walkIn), commission, stock, other)
	return s
}

func systemCtx() context.Context {
	return tenant.WithSystemScope(context.Background(), "test")
}

func TestReplayer_CatchUpBuildsReadModels(t *testing.T) {
	h := newHarness(t)
	s := seed(t, h)

	results, err := h.replayer.CatchUp(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 5)
	head, err := h.store.LastPosition(systemCtx(), nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, head, r.To, r.Projection)
	}

	ctxA := tenant.ContextWithTenant(context.Background(), s.tenantA)

	days, err := h.query.DailySales(ctxA, saleDay, saleDay)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-10", days[0].Day)
	assert.Equal(t, 1, days[0].SalesCount)
	assert.Equal(t, 1, days[0].CancelledCount)
	assertDec(t, "100", days[0].Gross)
	assertDec(t, "10", days[0].Discounts)
	assertDec(t, "90", days[0].Net)
	assertDec(t, "40", days[0].Cost)

	clients, err := h.query.TopClients(ctxA, 5)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Ana Souza", clients[0].Name)
	assert.Equal(t, 1, clients[0].PurchaseCount)
	assertDec(t, "90", clients[0].TotalSpent)
	require.NotNil(t, clients[0].LastPurchaseAt)
	assert.True(t, saleDay.Equal(*clients[0].LastPurchaseAt))

	products, err := h.query.TopProducts(ctxA, 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, s.product, products[0].ProductID)
	assertDec(t, "2", products[0].Quantity)
	assertDec(t, "100", products[0].Revenue)

	commissions, err := h.query.SellerCommissions(ctxA, "2026-03")
	require.NoError(t, err)
	require.Len(t, commissions, 1)
	assert.Equal(t, 1, commissions[0].SalesCount)
	assertDec(t, "4.50", commissions[0].CommissionTotal)

	low, err := h.query.LowStock(ctxA)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assertDec(t, "3", low[0].OnHand)

	t.Run("tenant B sees only its own rows", func(t *testing.T) {
		ctxB := tenant.ContextWithTenant(context.Background(), s.tenantB)
		days, err := h.query.DailySales(ctxB, saleDay, saleDay)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assertDec(t, "70", days[0].Net)

		clients, err := h.query.TopClients(ctxB, 5)
		require.NoError(t, err)
		assert.Empty(t, clients)
	})

	t.Run("status shows no lag", func(t *testing.T) {
		statuses, err := h.replayer.Status(context.Background())
		require.NoError(t, err)
		require.Len(t, statuses, 5)
		for _, st := range statuses {
			assert.Equal(t, head, st.Position)
			assert.Zero(t, st.Lag)
			assert.NotNil(t, st.UpdatedAt)
		}
	})

	t.Run("second catch-up applies nothing", func(t *testing.T) {
		results, err := h.replayer.CatchUp(context.Background())
		require.NoError(t, err)
		for _, r := range results {
			assert.Zero(t, r.Applied, r.Projection)
		}
	})
}

func TestEngine_LiveHandlingIsIdempotent(t *testing.T) {
	h := newHarness(t)
	s := seed(t, h)
	ctxA := tenant.ContextWithTenant(context.Background(), s.tenantA)

	require.NoError(t, h.engine.Handle(ctxA, s.firstSale))
	before := h.snapshot(t)
	require.NoError(t, h.engine.Handle(ctxA, s.firstSale))
	assert.Equal(t, before, h.snapshot(t), "same event twice changes nothing")

	var ledger models.ProcessedEventModel
	require.NoError(t, h.db.Tenant.WithContext(ctxA).
		Where("projection = ? AND event_id = ?", ProjectionSalesDaily, s.firstSale.EventID()).
		Take(&ledger).Error)
	assert.Positive(t, ledger.Position, "live events are stamped with their log position")

	t.Run("catch-up after live handling does not double count", func(t *testing.T) {
		_, err := h.replayer.CatchUp(context.Background())
		require.NoError(t, err)
		clients, err := h.query.TopClients(ctxA, 5)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		assert.Equal(t, 1, clients[0].PurchaseCount)
		assertDec(t, "90", clients[0].TotalSpent)
	})

	assert.Equal(t, []string{
		partner.EventTypeClientRegistered,
		partner.EventTypeClientUpdated,
		finance.EventTypeCommissionAccrued,
		finance.EventTypeCommissionCancelled,
		sales.EventTypeSaleCancelled,
		sales.EventTypeSaleCompleted,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeStockLow,
	}, h.engine.EventTypes())
}

func TestReplayer_RebuildMatchesLiveProjection(t *testing.T) {
	h := newHarness(t)
	s := seed(t, h)

	_, err := h.replayer.CatchUp(context.Background())
	require.NoError(t, err)
	live := h.snapshot(t)

	results, err := h.replayer.RebuildAll(systemCtx(), nil)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, 7, results[0].Events)
	assert.Equal(t, 4, results[0].Applied, "sales_daily folds the three sale events of A and one of B")
	assert.Equal(t, live, h.snapshot(t))

	_, err = h.replayer.Rebuild(systemCtx(), ProjectionSalesDaily, nil)
	require.NoError(t, err)
	assert.Equal(t, live, h.snapshot(t), "rebuilding twice yields the same tables")

	t.Run("tenant rebuild leaves other tenants alone", func(t *testing.T) {
		ctxA := tenant.ContextWithTenant(context.Background(), s.tenantA)
		res, err := h.replayer.Rebuild(ctxA, ProjectionSalesDaily, &s.tenantA)
		require.NoError(t, err)
		assert.Equal(t, 6, res.Events)
		assert.Equal(t, 3, res.Applied)
		assert.Equal(t, live, h.snapshot(t))
	})

	t.Run("scope checks", func(t *testing.T) {
		ctxA := tenant.ContextWithTenant(context.Background(), s.tenantA)
		_, err := h.replayer.Rebuild(ctxA, ProjectionSalesDaily, nil)
		assert.ErrorIs(t, err, event.ErrSystemScopeRequired)
		_, err = h.replayer.Rebuild(ctxA, ProjectionSalesDaily, &s.tenantB)
		assert.ErrorIs(t, err, shared.ErrTenantMismatch)
		_, err = h.replayer.Rebuild(context.Background(), ProjectionSalesDaily, &s.tenantB)
		assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)
		_, err = h.replayer.Rebuild(systemCtx(), "nope", nil)
		assert.ErrorIs(t, err, ErrUnknownProjection)
	})
}

// brokenProjection fails on one event and counts the rest
type brokenProjection struct {
	eventSet
	failOn uuid.UUID
}

func (p *brokenProjection) Name() string { return "broken" }

func (p *brokenProjection) Apply(_ context.Context, tx *gorm.DB, e shared.DomainEvent) error {
	if e.EventID() == p.failOn {
		return errors.New("cannot fold")
	}
	return nil
}

func (p *brokenProjection) Reset(context.Context, *gorm.DB, *uuid.UUID) error { return nil }

func TestReplayer_CatchUpStopsFailingProjectionOnly(t *testing.T) {
	tenantID := uuid.New()
	seller, product := uuid.New(), uuid.New()
	first := completed(tenantID, saleSnapshot(nil, seller, product, "1", "10", "5", "0"))
	second := completed(tenantID, saleSnapshot(nil, seller, product, "1", "20", "5", "0"))
	third := completed(tenantID, saleSnapshot(nil, seller, product, "1", "30", "5", "0"))

	broken := &brokenProjection{eventSet: eventSet{sales.EventTypeSaleCompleted}, failOn: second.EventID()}
	h := newHarness(t, broken, NewSalesDailyProjection())
	h.record(t, first, second, third)

	results, err := h.replayer.CatchUp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "cannot fold")

	stored, err := h.store.FindByEventID(tenant.ContextWithTenant(context.Background(), tenantID), first.EventID())
	require.NoError(t, err)
	head, err := h.store.LastPosition(systemCtx(), nil)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, stored.Position, results[0].To, "checkpoint stops before the failing event")
	assert.Equal(t, head, results[1].To)

	statuses, err := h.replayer.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, head-stored.Position, statuses[0].Lag)
	assert.Zero(t, statuses[1].Lag)

	broken.failOn = uuid.Nil
	_, err = h.replayer.CatchUp(context.Background())
	require.NoError(t, err)
	statuses, err = h.replayer.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, statuses[0].Lag)
}

func TestQueryService_RequiresTenant(t *testing.T) {
	h := newHarness(t)

	_, err := h.query.TopClients(context.Background(), 5)
	assert.ErrorIs(t, err, tenant.ErrTenantIDRequired)

	ctx := tenant.ContextWithTenant(context.Background(), uuid.New())
	_, err = h.query.SellerCommissions(ctx, "march")
	assert.Error(t, err)

	low, err := h.query.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)
}

func stockAdjusted(tenantID, productID uuid.UUID, onHand string, version int) *inventory.StockAdjustedEvent {
	return &inventory.StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(inventory.EventTypeStockAdjusted, catalog.AggregateTypeProduct, productID, tenantID),
		ProductID:       productID,
		SKU:             "AREIA-4KG",
		MovementType:    inventory.MovementAdjustment,
		OnHand:          dec(onHand),
		MinStock:        dec("2"),
		ProductVersion:  version,
	}
}

func TestStockLevels_LateDeliveryDoesNotRollBack(t *testing.T) {
	h := newHarness(t, NewStockLevelsProjection())
	tenantID, productID := uuid.New(), uuid.New()
	counted := stockAdjusted(tenantID, productID, "10", 2)
	recounted := stockAdjusted(tenantID, productID, "4", 3)
	h.record(t, counted, recounted)
	ctx := tenant.ContextWithTenant(context.Background(), tenantID)

	// a retried outbox entry delivers the older snapshot last
	require.NoError(t, h.engine.Handle(ctx, recounted))
	require.NoError(t, h.engine.Handle(ctx, counted))

	var row models.StockLevelModel
	require.NoError(t, h.db.Tenant.WithContext(ctx).Where("product_id = ?", productID).Take(&row).Error)
	assertDec(t, "4", row.OnHand)
	assert.Equal(t, 3, row.ProductVersion)
	live := h.snapshot(t)

	_, err := h.replayer.RebuildAll(systemCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, live, h.snapshot(t), "replay from zero equals the live read model")

	t.Run("catch-up after out of order delivery changes nothing", func(t *testing.T) {
		results, err := h.replayer.CatchUp(context.Background())
		require.NoError(t, err)
		assert.Equal(t, live, h.snapshot(t))
		for _, r := range results {
			assert.Zero(t, r.Applied)
		}
	})
}

func TestClientSummary_RenameReachesRanking(t *testing.T) {
	h := newHarness(t, NewClientSummaryProjection())
	tenantID, clientID := uuid.New(), uuid.New()
	registered := &partner.ClientRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(partner.EventTypeClientRegistered, partner.AggregateTypeClient, clientID, tenantID),
		ClientID:        clientID,
		Name:            "Ana Souza",
		Source:          partner.ClientSourceStore,
	}
	renamed := func(name string, version int) *partner.ClientUpdatedEvent {
		return &partner.ClientUpdatedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(partner.EventTypeClientUpdated, partner.AggregateTypeClient, clientID, tenantID),
			ClientID:        clientID,
			Name:            name,
			ClientVersion:   version,
		}
	}
	first, second := renamed("Ana S. Lima", 2), renamed("Ana Lima", 3)
	sale := completed(tenantID, saleSnapshot(&clientID, uuid.New(), uuid.New(), "1", "80", "30", "0"))
	h.record(t, registered, sale, first, second)
	ctx := tenant.ContextWithTenant(context.Background(), tenantID)

	for _, e := range []shared.DomainEvent{registered, sale, second, first} {
		require.NoError(t, h.engine.Handle(ctx, e))
	}

	clients, err := h.query.TopClients(ctx, 5)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Ana Lima", clients[0].Name)
	assertDec(t, "80", clients[0].TotalSpent)
	live := h.snapshot(t)

	_, err = h.replayer.Rebuild(systemCtx(), ProjectionClientSummary, nil)
	require.NoError(t, err)
	assert.Equal(t, live, h.snapshot(t))
}

package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/identity"
	"github.com/petshop/erp/internal/domain/partner"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func money(s string) valueobject.Money {
	return valueobject.NewMoney(dec(s))
}

func newSale(t *testing.T, tenantID, sellerID uuid.UUID, clientID *uuid.UUID, method sales.PaymentMethod) *sales.Sale {
	t.Helper()
	s, err := sales.NewSale(tenantID, sellerID, clientID, method, valueobject.ZeroMoney(), []sales.ItemInput{{
		ProductID: uuid.New(),
		SKU:       "RACAO-15KG",
		Name:      "Ração Premium 15kg",
		Quantity:  dec("2"),
		UnitPrice: money("125.00"),
		UnitCost:  money("80.00"),
		Discount:  valueobject.ZeroMoney(),
	}})
	require.NoError(t, err)
	return s
}

func completedEvent(t *testing.T, s *sales.Sale) *sales.SaleCompletedEvent {
	t.Helper()
	events := s.GetDomainEvents()
	require.NotEmpty(t, events)
	e, ok := events[0].(*sales.SaleCompletedEvent)
	require.True(t, ok)
	return e
}

func cancelledEvent(t *testing.T, s *sales.Sale) *sales.SaleCancelledEvent {
	t.Helper()
	s.ClearDomainEvents()
	require.NoError(t, s.Cancel("client gave up", uuid.New()))
	e, ok := s.GetDomainEvents()[0].(*sales.SaleCancelledEvent)
	require.True(t, ok)
	return e
}

func TestSaleReceivableHandler_OpensReceivableForAccountSale(t *testing.T) {
	repo := new(MockReceivableRepository)
	h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
	ctx := context.Background()
	tenantID, clientID := uuid.New(), uuid.New()
	sale := newSale(t, tenantID, uuid.New(), &clientID, sales.PaymentAccount)
	event := completedEvent(t, sale)

	repo.On("ExistsBySale", ctx, sale.ID).Return(false, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*finance.Receivable")).Return(nil)

	require.NoError(t, h.Handle(ctx, event))

	r := repo.Calls[1].Arguments.Get(1).(*finance.Receivable)
	assert.Equal(t, tenantID, r.TenantID)
	assert.Equal(t, clientID, r.ClientID)
	require.NotNil(t, r.SaleID)
	assert.Equal(t, sale.ID, *r.SaleID)
	assert.True(t, dec("250").Equal(r.Amount.Amount()))
	assert.Equal(t, sale.CompletedAt.AddDate(0, 0, 30), r.DueDate)
	assert.Equal(t, finance.TitleStatusOpen, r.Status)
}

func TestSaleReceivableHandler_IgnoresPaidSales(t *testing.T) {
	repo := new(MockReceivableRepository)
	h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
	sale := newSale(t, uuid.New(), uuid.New(), nil, sales.PaymentPix)

	require.NoError(t, h.Handle(context.Background(), completedEvent(t, sale)))
	require.NoError(t, h.Handle(context.Background(), cancelledEvent(t, sale)))

	repo.AssertNotCalled(t, "ExistsBySale", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "FindBySale", mock.Anything, mock.Anything)
}

func TestSaleReceivableHandler_SkipsRedelivery(t *testing.T) {
	repo := new(MockReceivableRepository)
	h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
	clientID := uuid.New()
	sale := newSale(t, uuid.New(), uuid.New(), &clientID, sales.PaymentAccount)

	repo.On("ExistsBySale", mock.Anything, sale.ID).Return(true, nil)

	require.NoError(t, h.Handle(context.Background(), completedEvent(t, sale)))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSaleReceivableHandler_CancelledSale(t *testing.T) {
	tenantID, clientID := uuid.New(), uuid.New()

	t.Run("open receivable is cancelled", func(t *testing.T) {
		repo := new(MockReceivableRepository)
		h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
		sale := newSale(t, tenantID, uuid.New(), &clientID, sales.PaymentAccount)
		r, err := finance.NewReceivable(tenantID, clientID, &sale.ID, money("250"), time.Now().AddDate(0, 0, 30), "")
		require.NoError(t, err)

		repo.On("FindBySale", mock.Anything, sale.ID).Return(r, nil)
		repo.On("Save", mock.Anything, r).Return(nil)

		require.NoError(t, h.Handle(context.Background(), cancelledEvent(t, sale)))
		assert.Equal(t, finance.TitleStatusCancelled, r.Status)
	})

	t.Run("partially received receivable is kept", func(t *testing.T) {
		repo := new(MockReceivableRepository)
		h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
		sale := newSale(t, tenantID, uuid.New(), &clientID, sales.PaymentAccount)
		r, err := finance.NewReceivable(tenantID, clientID, &sale.ID, money("250"), time.Now().AddDate(0, 0, 30), "")
		require.NoError(t, err)
		require.NoError(t, r.Receive(money("100"), time.Now()))

		repo.On("FindBySale", mock.Anything, sale.ID).Return(r, nil)

		require.NoError(t, h.Handle(context.Background(), cancelledEvent(t, sale)))
		assert.Equal(t, finance.TitleStatusPartial, r.Status)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("no receivable", func(t *testing.T) {
		repo := new(MockReceivableRepository)
		h := NewSaleReceivableHandler(repo, 30, zap.NewNop())
		sale := newSale(t, tenantID, uuid.New(), &clientID, sales.PaymentAccount)

		repo.On("FindBySale", mock.Anything, sale.ID).Return(nil, shared.ErrNotFound)

		require.NoError(t, h.Handle(context.Background(), cancelledEvent(t, sale)))
	})
}

func TestSaleCommissionHandler_Accrue(t *testing.T) {
	tenantID := uuid.New()
	defaultRate := dec("0.05")

	tests := []struct {
		name       string
		seller     func(t *testing.T) (*identity.User, error)
		wantAmount string
	}{
		{
			name: "seller override",
			seller: func(t *testing.T) (*identity.User, error) {
				u, err := identity.NewUser(tenantID, "Carla", "carla@petfeliz.com.br", "s3nha-segura", identity.RoleSeller)
				require.NoError(t, err)
				rate := dec("0.10")
				require.NoError(t, u.SetCommissionRate(&rate))
				return u, nil
			},
			wantAmount: "25",
		},
		{
			name: "default rate",
			seller: func(t *testing.T) (*identity.User, error) {
				u, err := identity.NewUser(tenantID, "Rui", "rui@petfeliz.com.br", "s3nha-segura", identity.RoleSeller)
				require.NoError(t, err)
				return u, nil
			},
			wantAmount: "12.5",
		},
		{
			name: "unknown seller falls back to default",
			seller: func(t *testing.T) (*identity.User, error) {
				return nil, shared.ErrNotFound
			},
			wantAmount: "12.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commissions := new(MockCommissionRepository)
			users := new(MockUserRepository)
			h := NewSaleCommissionHandler(commissions, users, defaultRate, zap.NewNop())
			sellerID := uuid.New()
			sale := newSale(t, tenantID, sellerID, nil, sales.PaymentCash)

			seller, err := tt.seller(t)
			if seller != nil {
				users.On("FindByID", mock.Anything, sellerID).Return(seller, nil)
			} else {
				users.On("FindByID", mock.Anything, sellerID).Return(nil, err)
			}
			commissions.On("ExistsBySale", mock.Anything, sale.ID).Return(false, nil)
			commissions.On("Save", mock.Anything, mock.AnythingOfType("*finance.Commission")).Return(nil)

			require.NoError(t, h.Handle(context.Background(), completedEvent(t, sale)))

			c := commissions.Calls[1].Arguments.Get(1).(*finance.Commission)
			assert.Equal(t, sellerID, c.SellerID)
			assert.Equal(t, sale.ID, c.SaleID)
			assert.Equal(t, sale.CompletedAt, c.AccruedAt)
			assert.True(t, dec(tt.wantAmount).Equal(c.Amount.Amount()), "amount %s", c.Amount)
			assert.Equal(t, finance.CommissionStatusPending, c.Status)
		})
	}
}

func TestSaleCommissionHandler_SkipsRedelivery(t *testing.T) {
	commissions := new(MockCommissionRepository)
	users := new(MockUserRepository)
	h := NewSaleCommissionHandler(commissions, users, dec("0.05"), zap.NewNop())
	sale := newSale(t, uuid.New(), uuid.New(), nil, sales.PaymentCash)

	commissions.On("ExistsBySale", mock.Anything, sale.ID).Return(true, nil)

	require.NoError(t, h.Handle(context.Background(), completedEvent(t, sale)))
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	commissions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSaleCommissionHandler_Reverse(t *testing.T) {
	commissions := new(MockCommissionRepository)
	h := NewSaleCommissionHandler(commissions, new(MockUserRepository), dec("0.05"), zap.NewNop())
	tenantID, sellerID := uuid.New(), uuid.New()
	sale := newSale(t, tenantID, sellerID, nil, sales.PaymentCash)
	c, err := finance.NewCommission(tenantID, sellerID, sale.ID, money("250"), dec("0.05"), sale.CompletedAt)
	require.NoError(t, err)

	commissions.On("FindBySale", mock.Anything, sale.ID).Return(c, nil)
	commissions.On("Save", mock.Anything, c).Return(nil)

	require.NoError(t, h.Handle(context.Background(), cancelledEvent(t, sale)))
	assert.Equal(t, finance.CommissionStatusCancelled, c.Status)

	// a second delivery finds it cancelled and does nothing
	require.NoError(t, h.Handle(context.Background(), &sales.SaleCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(sales.EventTypeSaleCancelled, sales.AggregateTypeSale, sale.ID, tenantID),
		SaleSnapshot:    sales.SaleSnapshot{SaleID: sale.ID},
	}))
	commissions.AssertNumberOfCalls(t, "Save", 1)
}

func TestReceivableService_Receive(t *testing.T) {
	repo := new(MockReceivableRepository)
	svc := NewReceivableService(repo, new(MockClientRepository), zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	r, err := finance.NewReceivable(tenantID, uuid.New(), nil, money("300"), time.Now().AddDate(0, 0, 10), "grooming package")
	require.NoError(t, err)
	r.MarkPersisted()

	repo.On("FindByID", ctx, r.ID).Return(r, nil)
	repo.On("Save", ctx, r).Return(nil)

	resp, err := svc.Receive(ctx, tenantID, r.ID, SettleRequest{Amount: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "partial", resp.Status)
	assert.True(t, dec("200").Equal(resp.Outstanding))

	_, err = svc.Receive(ctx, tenantID, r.ID, SettleRequest{Amount: dec("250")})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "OVERPAYMENT", domainErr.Code)

	resp, err = svc.Receive(ctx, tenantID, r.ID, SettleRequest{Amount: dec("200")})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.NotNil(t, resp.PaidAt)
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestReceivableService_CreateRequiresClientOfTenant(t *testing.T) {
	clients := new(MockClientRepository)
	repo := new(MockReceivableRepository)
	svc := NewReceivableService(repo, clients, zap.NewNop())
	ctx := context.Background()

	other, err := partner.NewClient(uuid.New(), "Joana", "", partner.ClientSourceStore)
	require.NoError(t, err)
	clients.On("FindByID", ctx, other.ID).Return(other, nil)

	_, err = svc.Create(ctx, uuid.New(), CreateReceivableRequest{
		ClientID: other.ID,
		Amount:   dec("50"),
		DueDate:  time.Now().AddDate(0, 0, 5),
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CLIENT_NOT_FOUND", domainErr.Code)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReceivableService_ListOverdue(t *testing.T) {
	repo := new(MockReceivableRepository)
	svc := NewReceivableService(repo, new(MockClientRepository), zap.NewNop())
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	r, err := finance.NewReceivable(uuid.New(), uuid.New(), nil, money("80"), now.AddDate(0, 0, -3), "")
	require.NoError(t, err)

	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f finance.TitleFilter) bool {
		return f.DueBefore != nil && f.DueBefore.Equal(now) && f.OrderBy == "due_date"
	})).Return([]finance.Receivable{*r}, int64(1), nil)

	page, err := svc.List(context.Background(), ListTitlesRequest{Overdue: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Overdue)
}

func TestPayableService_Create(t *testing.T) {
	repo := new(MockPayableRepository)
	svc := NewPayableService(repo, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()

	repo.On("Save", ctx, mock.AnythingOfType("*finance.Payable")).Return(nil)

	resp, err := svc.Create(ctx, tenantID, CreatePayableRequest{
		Supplier: "Distribuidora Pet Sul",
		Category: "supplier",
		Amount:   dec("1890.40"),
		DueDate:  time.Now().AddDate(0, 0, 28),
		Document: "NF-123",
	})
	require.NoError(t, err)
	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, "NF-123", resp.Document)

	_, err = svc.Create(ctx, tenantID, CreatePayableRequest{
		Supplier: "Imobiliária",
		Category: "vacation",
		Amount:   dec("10"),
		DueDate:  time.Now(),
	})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CATEGORY", domainErr.Code)
}

func TestPayableService_Pay(t *testing.T) {
	repo := new(MockPayableRepository)
	svc := NewPayableService(repo, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	p, err := finance.NewPayable(tenantID, "Energia SA", finance.ExpenseUtilities, money("420.00"), time.Now(), "")
	require.NoError(t, err)
	p.MarkPersisted()

	repo.On("FindByID", ctx, p.ID).Return(p, nil)
	repo.On("Save", ctx, p).Return(nil)

	paidAt := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	resp, err := svc.Pay(ctx, tenantID, p.ID, SettleRequest{Amount: dec("420"), PaidAt: &paidAt})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	require.NotNil(t, resp.PaidAt)
	assert.Equal(t, paidAt, *resp.PaidAt)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, finance.EventTypePayablePaid, events[0].EventType())

	_, err = svc.Pay(ctx, uuid.New(), p.ID, SettleRequest{Amount: dec("1")})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCommissionService_PayCommissions(t *testing.T) {
	repo := new(MockCommissionRepository)
	svc := NewCommissionService(repo, passthroughTransactor{}, zap.NewNop())
	ctx := context.Background()
	tenantID, sellerID := uuid.New(), uuid.New()
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	c1, err := finance.NewCommission(tenantID, sellerID, uuid.New(), money("200"), dec("0.05"), from.Add(48*time.Hour))
	require.NoError(t, err)
	c2, err := finance.NewCommission(tenantID, sellerID, uuid.New(), money("90"), dec("0.05"), from.Add(72*time.Hour))
	require.NoError(t, err)

	repo.On("FindPending", ctx, sellerID, from, to).Return([]finance.Commission{*c1, *c2}, nil)
	repo.On("Save", ctx, mock.MatchedBy(func(c *finance.Commission) bool {
		return c.Status == finance.CommissionStatusPaid && c.PaidAt != nil
	})).Return(nil)

	out, err := svc.PayCommissions(ctx, tenantID, PayCommissionsRequest{SellerID: sellerID, From: from, To: to})

	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.True(t, dec("14.5").Equal(out.Total), "total %s", out.Total)
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestCommissionService_PayCommissionsRejectsEmptyPeriod(t *testing.T) {
	repo := new(MockCommissionRepository)
	svc := NewCommissionService(repo, passthroughTransactor{}, zap.NewNop())
	at := time.Now()

	_, err := svc.PayCommissions(context.Background(), uuid.New(), PayCommissionsRequest{SellerID: uuid.New(), From: at, To: at})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PERIOD", domainErr.Code)
	repo.AssertNotCalled(t, "FindPending", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOverdueScanner_Scan(t *testing.T) {
	tenants := new(MockTenantRepository)
	receivables := new(MockReceivableRepository)
	payables := new(MockPayableRepository)
	scanner := NewOverdueScanner(tenants, receivables, payables, zap.NewNop())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	scanner.now = func() time.Time { return now }

	active, err := identity.NewTenant("Pet Feliz", "pet-feliz")
	require.NoError(t, err)
	suspended, err := identity.NewTenant("Bicho Bom", "bicho-bom")
	require.NoError(t, err)
	require.NoError(t, suspended.Suspend())

	r, err := finance.NewReceivable(active.ID, uuid.New(), nil, money("120"), now.AddDate(0, 0, -5), "")
	require.NoError(t, err)
	require.NoError(t, r.Receive(money("20"), now.AddDate(0, 0, -1)))

	tenants.On("FindAll", mock.MatchedBy(func(ctx context.Context) bool {
		return tenant.IsSystemScope(ctx)
	})).Return([]identity.Tenant{*active, *suspended}, nil)

	activeCtx := mock.MatchedBy(func(ctx context.Context) bool {
		id, ok, _ := tenant.FromContext(ctx)
		return ok && id == active.ID
	})
	receivables.On("FindAll", activeCtx, mock.Anything).Return([]finance.Receivable{*r}, int64(1), nil)
	payables.On("FindAll", activeCtx, mock.Anything).Return([]finance.Payable{}, int64(0), nil)

	out, err := scanner.Scan(context.Background())

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, active.ID, out[0].TenantID)
	assert.Equal(t, int64(1), out[0].ReceivablesCount)
	assert.True(t, dec("100").Equal(out[0].ReceivablesAmount))
	assert.Equal(t, int64(0), out[0].PayablesCount)
	receivables.AssertNumberOfCalls(t, "FindAll", 1)
}

package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReportReader struct {
	mock.Mock
}

func (m *MockReportReader) PeriodTotals(ctx context.Context, from, to time.Time) (*finance.DREInput, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.DREInput), args.Error(1)
}

type MockDashboardReader struct {
	mock.Mock
}

func (m *MockDashboardReader) DailySales(ctx context.Context, from, to time.Time) ([]readmodel.DailySales, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]readmodel.DailySales), args.Error(1)
}

func (m *MockDashboardReader) TopClients(ctx context.Context, limit int) ([]readmodel.ClientRanking, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]readmodel.ClientRanking), args.Error(1)
}

func (m *MockDashboardReader) TopProducts(ctx context.Context, limit int) ([]readmodel.ProductRanking, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]readmodel.ProductRanking), args.Error(1)
}

func (m *MockDashboardReader) SellerCommissions(ctx context.Context, month string) ([]readmodel.SellerCommission, error) {
	args := m.Called(ctx, month)
	return args.Get(0).([]readmodel.SellerCommission), args.Error(1)
}

func (m *MockDashboardReader) LowStock(ctx context.Context) ([]readmodel.LowStockItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]readmodel.LowStockItem), args.Error(1)
}

func money(s string) valueobject.Money {
	return valueobject.NewMoney(decimal.RequireFromString(s))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReportService_DRE(t *testing.T) {
	reader := new(MockReportReader)
	svc := NewReportService(reader, new(MockDashboardReader), decimal.RequireFromString("0.06"), zap.NewNop())
	ctx := context.Background()
	from, next := day(2025, 3, 1), day(2025, 4, 1)

	reader.On("PeriodTotals", ctx, from, next).Return(&finance.DREInput{
		GrossRevenue:  money("1000"),
		Cancellations: money("100"),
		Discounts:     money("50"),
		COGS:          money("400"),
		Commissions:   money("30"),
		Expenses: map[finance.ExpenseCategory]valueobject.Money{
			finance.ExpenseRent: money("200"),
		},
	}, nil)

	dre, err := svc.DRE(ctx, PeriodRequest{From: from, To: day(2025, 3, 31)})

	require.NoError(t, err)
	assert.Equal(t, "51.00", dre.Taxes.String())
	assert.Equal(t, "799.00", dre.NetRevenue.String())
	assert.Equal(t, "399.00", dre.GrossProfit.String())
	assert.Equal(t, "169.00", dre.NetResult.String())
	assert.Equal(t, from, dre.From)
	assert.Equal(t, next, dre.To)
}

func TestReportService_DREInvalidPeriod(t *testing.T) {
	reader := new(MockReportReader)
	svc := NewReportService(reader, new(MockDashboardReader), decimal.Zero, zap.NewNop())

	_, err := svc.DRE(context.Background(), PeriodRequest{From: day(2025, 3, 10), To: day(2025, 3, 1)})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_PERIOD", domainErr.Code)
	reader.AssertNotCalled(t, "PeriodTotals", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_Dashboard(t *testing.T) {
	dash := new(MockDashboardReader)
	svc := NewReportService(new(MockReportReader), dash, decimal.Zero, zap.NewNop())
	ctx := context.Background()
	from, to := day(2025, 3, 1), day(2025, 3, 2)

	dash.On("DailySales", ctx, from, to).Return([]readmodel.DailySales{
		{Day: "2025-03-01", SalesCount: 3, Gross: decimal.NewFromInt(300), Discounts: decimal.NewFromInt(10), Net: decimal.NewFromInt(290), Cost: decimal.NewFromInt(150)},
		{Day: "2025-03-02", SalesCount: 1, CancelledCount: 1, Gross: decimal.NewFromInt(60), Discounts: decimal.Zero, Net: decimal.NewFromInt(60), Cost: decimal.NewFromInt(20)},
	}, nil)
	dash.On("TopClients", ctx, defaultTop).Return([]readmodel.ClientRanking{}, nil)
	dash.On("TopProducts", ctx, defaultTop).Return([]readmodel.ProductRanking{}, nil)
	dash.On("SellerCommissions", ctx, "2025-03").Return([]readmodel.SellerCommission{}, nil)
	dash.On("LowStock", ctx).Return([]readmodel.LowStockItem{{SKU: "AREIA-4KG"}}, nil)

	out, err := svc.Dashboard(ctx, PeriodRequest{From: from, To: to})

	require.NoError(t, err)
	assert.Equal(t, 4, out.Totals.SalesCount)
	assert.Equal(t, 1, out.Totals.CancelledCount)
	assert.True(t, decimal.NewFromInt(350).Equal(out.Totals.Net))
	assert.True(t, decimal.RequireFromString("87.5").Equal(out.Totals.AverageTicket), "ticket %s", out.Totals.AverageTicket)
	require.Len(t, out.LowStock, 1)
	dash.AssertExpectations(t)
}

func TestReportService_DashboardPropagatesErrors(t *testing.T) {
	dash := new(MockDashboardReader)
	svc := NewReportService(new(MockReportReader), dash, decimal.Zero, zap.NewNop())
	boom := errors.New("read model unavailable")

	dash.On("DailySales", mock.Anything, mock.Anything, mock.Anything).Return([]readmodel.DailySales{}, boom)

	_, err := svc.Dashboard(context.Background(), PeriodRequest{From: day(2025, 3, 1), To: day(2025, 3, 1)})
	assert.ErrorIs(t, err, boom)
}

package report

import (
	"context"
	"time"

	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/readmodel"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DashboardReader is the slice of the read-model query service the dashboard uses
type DashboardReader interface {
	DailySales(ctx context.Context, from, to time.Time) ([]readmodel.DailySales, error)
	TopClients(ctx context.Context, limit int) ([]readmodel.ClientRanking, error)
	TopProducts(ctx context.Context, limit int) ([]readmodel.ProductRanking, error)
	SellerCommissions(ctx context.Context, month string) ([]readmodel.SellerCommission, error)
	LowStock(ctx context.Context) ([]readmodel.LowStockItem, error)
}

// PeriodRequest selects a reporting period. Dates are days; To is inclusive.
type PeriodRequest struct {
	From time.Time `form:"from" time_format:"2006-01-02" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02" binding:"required"`
	Top  int       `form:"top" binding:"omitempty,min=1,max=100"`
}

// bounds returns the half-open interval [from, to+1d)
func (p PeriodRequest) bounds() (time.Time, time.Time, error) {
	from := truncateDay(p.From)
	to := truncateDay(p.To).AddDate(0, 0, 1)
	if !to.After(from) {
		return time.Time{}, time.Time{}, shared.NewDomainError("INVALID_PERIOD", "Period end must not be before its start")
	}
	return from, to, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SalesTotals sums the daily rows of a period
type SalesTotals struct {
	SalesCount     int             `json:"sales_count"`
	CancelledCount int             `json:"cancelled_count"`
	Gross          decimal.Decimal `json:"gross"`
	Discounts      decimal.Decimal `json:"discounts"`
	Net            decimal.Decimal `json:"net"`
	Cost           decimal.Decimal `json:"cost"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
}

// Dashboard is the shop overview for a period
type Dashboard struct {
	From              time.Time                    `json:"from"`
	To                time.Time                    `json:"to"`
	Totals            SalesTotals                  `json:"totals"`
	Daily             []readmodel.DailySales       `json:"daily"`
	TopClients        []readmodel.ClientRanking    `json:"top_clients"`
	TopProducts       []readmodel.ProductRanking   `json:"top_products"`
	SellerCommissions []readmodel.SellerCommission `json:"seller_commissions"`
	LowStock          []readmodel.LowStockItem     `json:"low_stock"`
}

const defaultTop = 10

// ReportService builds the income statement and the dashboard
type ReportService struct {
	reportReader finance.ReportReader
	dashboard    DashboardReader
	taxRate      decimal.Decimal
	logger       *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	reportReader finance.ReportReader,
	dashboard DashboardReader,
	taxRate decimal.Decimal,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportReader: reportReader,
		dashboard:    dashboard,
		taxRate:      taxRate,
		logger:       logger,
	}
}

// DRE builds the income statement of the context tenant
func (s *ReportService) DRE(ctx context.Context, req PeriodRequest) (*finance.DRE, error) {
	from, to, err := req.bounds()
	if err != nil {
		return nil, err
	}

	in, err := s.reportReader.PeriodTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	in.From = from
	in.To = to
	in.TaxRate = s.taxRate

	dre, err := finance.BuildDRE(*in)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("dre built",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.String("net_revenue", dre.NetRevenue.String()),
		zap.String("net_result", dre.NetResult.String()),
	)
	return dre, nil
}

// Dashboard assembles the projections of the context tenant. Rankings are all-time;
// seller commissions are those of the month the period ends in.
func (s *ReportService) Dashboard(ctx context.Context, req PeriodRequest) (*Dashboard, error) {
	from, to, err := req.bounds()
	if err != nil {
		return nil, err
	}
	top := req.Top
	if top == 0 {
		top = defaultTop
	}
	lastDay := to.AddDate(0, 0, -1)

	out := &Dashboard{From: from, To: lastDay}
	if out.Daily, err = s.dashboard.DailySales(ctx, from, lastDay); err != nil {
		return nil, err
	}
	if out.TopClients, err = s.dashboard.TopClients(ctx, top); err != nil {
		return nil, err
	}
	if out.TopProducts, err = s.dashboard.TopProducts(ctx, top); err != nil {
		return nil, err
	}
	if out.SellerCommissions, err = s.dashboard.SellerCommissions(ctx, lastDay.Format("2006-01")); err != nil {
		return nil, err
	}
	if out.LowStock, err = s.dashboard.LowStock(ctx); err != nil {
		return nil, err
	}
	out.Totals = sumDaily(out.Daily)
	return out, nil
}

func sumDaily(days []readmodel.DailySales) SalesTotals {
	t := SalesTotals{
		Gross:         decimal.Zero,
		Discounts:     decimal.Zero,
		Net:           decimal.Zero,
		Cost:          decimal.Zero,
		AverageTicket: decimal.Zero,
	}
	for _, d := range days {
		t.SalesCount += d.SalesCount
		t.CancelledCount += d.CancelledCount
		t.Gross = t.Gross.Add(d.Gross)
		t.Discounts = t.Discounts.Add(d.Discounts)
		t.Net = t.Net.Add(d.Net)
		t.Cost = t.Cost.Add(d.Cost)
	}
	// cancelled sales are already netted out of sales_count
	if t.SalesCount > 0 {
		t.AverageTicket = t.Net.Div(decimal.NewFromInt(int64(t.SalesCount))).Round(2)
	}
	return t
}

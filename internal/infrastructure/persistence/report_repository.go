package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/petshop/erp/internal/domain/finance"
	"github.com/petshop/erp/internal/domain/sales"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/petshop/erp/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
)

const (
	dreSalesSQL = `SELECT
	COALESCE(SUM(subtotal), 0) AS gross,
	COALESCE(SUM(CASE WHEN status = ? THEN subtotal ELSE 0 END), 0) AS cancellations,
	COALESCE(SUM(CASE WHEN status = ? THEN discount ELSE 0 END), 0) AS discounts,
	COALESCE(SUM(CASE WHEN status = ? THEN cost_total ELSE 0 END), 0) AS cogs
FROM sales
WHERE tenant_id = ? AND completed_at >= ? AND completed_at < ?`

	dreCommissionsSQL = `SELECT COALESCE(SUM(amount), 0)
FROM commissions
WHERE tenant_id = ? AND status <> ? AND accrued_at >= ? AND accrued_at < ?`

	dreExpensesSQL = `SELECT category, COALESCE(SUM(amount), 0) AS amount
FROM payable_payments
WHERE tenant_id = ? AND paid_at >= ? AND paid_at < ?
GROUP BY category`
)

// SqlxReportReader implements finance.ReportReader with hand-written aggregates over
// the guarded sqlx path. Every statement carries its own tenant predicate.
type SqlxReportReader struct {
	db *tenant.GuardedDB
}

// NewSqlxReportReader creates a new SqlxReportReader
func NewSqlxReportReader(db *tenant.GuardedDB) *SqlxReportReader {
	return &SqlxReportReader{db: db}
}

type dreSalesRow struct {
	Gross         decimal.Decimal `db:"gross"`
	Cancellations decimal.Decimal `db:"cancellations"`
	Discounts     decimal.Decimal `db:"discounts"`
	COGS          decimal.Decimal `db:"cogs"`
}

type dreExpenseRow struct {
	Category finance.ExpenseCategory `db:"category"`
	Amount   decimal.Decimal         `db:"amount"`
}

// PeriodTotals reads the DRE aggregates of the context tenant for [from, to).
// TaxRate is left for the caller.
func (r *SqlxReportReader) PeriodTotals(ctx context.Context, from, to time.Time) (*finance.DREInput, error) {
	tenantID, ok, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, tenant.ErrTenantIDRequired
	}

	var s dreSalesRow
	if err := r.db.Get(ctx, &s, r.db.Rebind(dreSalesSQL),
		sales.SaleStatusCancelled, sales.SaleStatusCompleted, sales.SaleStatusCompleted,
		tenantID, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	var commissions decimal.Decimal
	if err := r.db.Get(ctx, &commissions, r.db.Rebind(dreCommissionsSQL),
		tenantID, finance.CommissionStatusCancelled, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate commissions: %w", err)
	}

	var expenses []dreExpenseRow
	if err := r.db.Select(ctx, &expenses, r.db.Rebind(dreExpensesSQL),
		tenantID, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}

	in := &finance.DREInput{
		From:          from,
		To:            to,
		GrossRevenue:  valueobject.NewMoney(s.Gross),
		Cancellations: valueobject.NewMoney(s.Cancellations),
		Discounts:     valueobject.NewMoney(s.Discounts),
		COGS:          valueobject.NewMoney(s.COGS),
		Commissions:   valueobject.NewMoney(commissions),
		Expenses:      make(map[finance.ExpenseCategory]valueobject.Money, len(expenses)),
	}
	for _, e := range expenses {
		in.Expenses[e.Category] = valueobject.NewMoney(e.Amount)
	}
	return in, nil
}

var _ finance.ReportReader = (*SqlxReportReader)(nil)

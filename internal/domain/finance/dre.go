package finance

import (
	"sort"
	"time"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DREInput holds the period aggregates an income statement is built from
type DREInput struct {
	From time.Time
	To   time.Time

	GrossRevenue  valueobject.Money // subtotals of every sale completed in the period
	Cancellations valueobject.Money // subtotals of those sales that were later cancelled
	Discounts     valueobject.Money // order discounts of sales that stand
	COGS          valueobject.Money // cost of goods of sales that stand
	Commissions   valueobject.Money // non-cancelled commissions accrued in the period
	Expenses      map[ExpenseCategory]valueobject.Money
	TaxRate       decimal.Decimal // sales tax rate applied on revenue net of cancellations and discounts
}

// ExpenseLine is one operating expense category of the statement
type ExpenseLine struct {
	Category ExpenseCategory   `json:"category"`
	Amount   valueobject.Money `json:"amount"`
}

// DRE is the Brazilian income statement for a period
type DRE struct {
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	GrossRevenue      valueobject.Money `json:"gross_revenue"`
	Cancellations     valueobject.Money `json:"cancellations"`
	Discounts         valueobject.Money `json:"discounts"`
	Taxes             valueobject.Money `json:"taxes"`
	Deductions        valueobject.Money `json:"deductions"`
	NetRevenue        valueobject.Money `json:"net_revenue"`
	COGS              valueobject.Money `json:"cogs"`
	GrossProfit       valueobject.Money `json:"gross_profit"`
	OperatingExpenses []ExpenseLine     `json:"operating_expenses"`
	TotalExpenses     valueobject.Money `json:"total_expenses"`
	Commissions       valueobject.Money `json:"commissions"`
	OperatingResult   valueobject.Money `json:"operating_result"`
	NetResult         valueobject.Money `json:"net_result"`
	GrossMargin       decimal.Decimal   `json:"gross_margin"`
	NetMargin         decimal.Decimal   `json:"net_margin"`
}

// BuildDRE folds period aggregates into the statement
func BuildDRE(in DREInput) (*DRE, error) {
	if !in.To.After(in.From) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after its start")
	}
	if in.TaxRate.IsNegative() || in.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be in [0, 1)")
	}

	taxBase := in.GrossRevenue.Sub(in.Cancellations).Sub(in.Discounts)
	taxes := taxBase.Mul(in.TaxRate).Round()
	if taxes.IsNegative() {
		taxes = valueobject.ZeroMoney()
	}
	deductions := valueobject.SumMoney(in.Cancellations, in.Discounts, taxes)
	netRevenue := in.GrossRevenue.Sub(deductions)
	grossProfit := netRevenue.Sub(in.COGS)

	lines := make([]ExpenseLine, 0, len(in.Expenses))
	totalExpenses := valueobject.ZeroMoney()
	for cat, amount := range in.Expenses {
		lines = append(lines, ExpenseLine{Category: cat, Amount: amount})
		totalExpenses = totalExpenses.Add(amount)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Category < lines[j].Category })

	operating := grossProfit.Sub(totalExpenses).Sub(in.Commissions)

	return &DRE{
		From:              in.From,
		To:                in.To,
		GrossRevenue:      in.GrossRevenue,
		Cancellations:     in.Cancellations,
		Discounts:         in.Discounts,
		Taxes:             taxes,
		Deductions:        deductions,
		NetRevenue:        netRevenue,
		COGS:              in.COGS,
		GrossProfit:       grossProfit,
		OperatingExpenses: lines,
		TotalExpenses:     totalExpenses,
		Commissions:       in.Commissions,
		OperatingResult:   operating,
		NetResult:         operating,
		GrossMargin:       grossProfit.Ratio(netRevenue),
		NetMargin:         operating.Ratio(netRevenue),
	}, nil
}

package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

const AggregateTypePayable = "Payable"

// ExpenseCategory groups payables into DRE operating expense lines
type ExpenseCategory string

const (
	ExpenseSupplier  ExpenseCategory = "supplier"
	ExpenseRent      ExpenseCategory = "rent"
	ExpensePayroll   ExpenseCategory = "payroll"
	ExpenseUtilities ExpenseCategory = "utilities"
	ExpenseMarketing ExpenseCategory = "marketing"
	ExpenseTaxes     ExpenseCategory = "taxes"
	ExpenseOther     ExpenseCategory = "other"
)

// IsValid reports whether c is a known category
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseSupplier, ExpenseRent, ExpensePayroll, ExpenseUtilities, ExpenseMarketing, ExpenseTaxes, ExpenseOther:
		return true
	}
	return false
}

// Payable is money the shop owes a supplier or service provider
type Payable struct {
	shared.TenantAggregateRoot
	Title
	Supplier    string
	Category    ExpenseCategory
	Description string
	Document    string // invoice number

	// Payments holds the payments made since the payable was loaded
	Payments []PayablePayment
}

// PayablePayment is one payment against a payable. The DRE books expenses by
// payment date.
type PayablePayment struct {
	ID     uuid.UUID
	Amount valueobject.Money
	PaidAt time.Time
}

// NewPayable creates an open payable
func NewPayable(tenantID uuid.UUID, supplier string, category ExpenseCategory, amount valueobject.Money, due time.Time, description string) (*Payable, error) {
	supplier = strings.TrimSpace(supplier)
	if supplier == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier is required")
	}
	if !category.IsValid() {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Unknown expense category: "+string(category))
	}
	title, err := newTitle(amount, due)
	if err != nil {
		return nil, err
	}
	return &Payable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Title:               title,
		Supplier:            supplier,
		Category:            category,
		Description:         strings.TrimSpace(description),
	}, nil
}

// Pay records a (possibly partial) payment
func (p *Payable) Pay(amount valueobject.Money, at time.Time) error {
	if err := p.settle(amount, at); err != nil {
		return err
	}
	p.Payments = append(p.Payments, PayablePayment{ID: uuid.New(), Amount: amount.Round(), PaidAt: at})
	p.IncrementVersion()
	p.AddDomainEvent(&PayablePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayablePaid, AggregateTypePayable, p.ID, p.TenantID),
		Category:        p.Category,
		Amount:          amount.Round().Amount(),
		PaidAt:          at,
	})
	return nil
}

// Cancel voids an untouched payable
func (p *Payable) Cancel() error {
	if err := p.cancel(); err != nil {
		return err
	}
	p.IncrementVersion()
	return nil
}

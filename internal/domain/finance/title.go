package finance

import (
	"time"

	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

// TitleStatus is the settlement state shared by payables and receivables
type TitleStatus string

const (
	TitleStatusOpen      TitleStatus = "open"
	TitleStatusPartial   TitleStatus = "partial"
	TitleStatusPaid      TitleStatus = "paid"
	TitleStatusCancelled TitleStatus = "cancelled"
)

// IsSettleable reports whether payments can still be applied
func (s TitleStatus) IsSettleable() bool {
	return s == TitleStatusOpen || s == TitleStatusPartial
}

// Title is the amount/due-date core of a financial obligation
type Title struct {
	Amount     valueobject.Money
	PaidAmount valueobject.Money
	DueDate    time.Time
	Status     TitleStatus
	PaidAt     *time.Time
}

func newTitle(amount valueobject.Money, due time.Time) (Title, error) {
	if !amount.IsPositive() {
		return Title{}, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	return Title{
		Amount:     amount.Round(),
		PaidAmount: valueobject.ZeroMoney(),
		DueDate:    due,
		Status:     TitleStatusOpen,
	}, nil
}

// Outstanding returns what is still owed
func (t *Title) Outstanding() valueobject.Money {
	return t.Amount.Sub(t.PaidAmount)
}

// IsOverdue reports whether the title is unpaid after its due date
func (t *Title) IsOverdue(now time.Time) bool {
	return t.Status.IsSettleable() && now.After(t.DueDate)
}

// settle applies a payment; overpayment is rejected
func (t *Title) settle(amount valueobject.Money, at time.Time) error {
	if !t.Status.IsSettleable() {
		return shared.NewDomainError("INVALID_STATE", "Title is "+string(t.Status))
	}
	amount = amount.Round()
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment must be positive")
	}
	if amount.GreaterThan(t.Outstanding()) {
		return shared.NewDomainError("OVERPAYMENT", "Payment exceeds outstanding amount "+t.Outstanding().String())
	}
	t.PaidAmount = t.PaidAmount.Add(amount)
	if t.Outstanding().IsZero() {
		t.Status = TitleStatusPaid
		t.PaidAt = &at
	} else {
		t.Status = TitleStatusPartial
	}
	return nil
}

func (t *Title) cancel() error {
	if t.Status != TitleStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Only open titles can be cancelled")
	}
	t.Status = TitleStatusCancelled
	return nil
}

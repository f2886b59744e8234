package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/domain/shared/valueobject"
)

const AggregateTypeReceivable = "Receivable"

// Receivable is money a client owes the shop
type Receivable struct {
	shared.TenantAggregateRoot
	Title
	ClientID    uuid.UUID
	SaleID      *uuid.UUID
	Description string
}

// NewReceivable creates an open receivable
func NewReceivable(tenantID, clientID uuid.UUID, saleID *uuid.UUID, amount valueobject.Money, due time.Time, description string) (*Receivable, error) {
	title, err := newTitle(amount, due)
	if err != nil {
		return nil, err
	}
	r := &Receivable{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Title:               title,
		ClientID:            clientID,
		SaleID:              saleID,
		Description:         strings.TrimSpace(description),
	}
	r.AddDomainEvent(&ReceivableCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableCreated, AggregateTypeReceivable, r.ID, tenantID),
		ClientID:        clientID,
		SaleID:          saleID,
		Amount:          r.Amount.Amount(),
		DueDate:         due,
	})
	return r, nil
}

// Receive records a (possibly partial) receipt
func (r *Receivable) Receive(amount valueobject.Money, at time.Time) error {
	if err := r.settle(amount, at); err != nil {
		return err
	}
	r.IncrementVersion()
	r.AddDomainEvent(&ReceivablePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivablePaid, AggregateTypeReceivable, r.ID, r.TenantID),
		ClientID:        r.ClientID,
		Amount:          amount.Round().Amount(),
		Outstanding:     r.Outstanding().Amount(),
		Status:          r.Status,
	})
	return nil
}

// Cancel voids an untouched receivable
func (r *Receivable) Cancel() error {
	if err := r.cancel(); err != nil {
		return err
	}
	r.IncrementVersion()
	return nil
}

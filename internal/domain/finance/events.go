package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeReceivableCreated   = "ReceivableCreated"
	EventTypeReceivablePaid      = "ReceivablePaid"
	EventTypePayablePaid         = "PayablePaid"
	EventTypeCommissionAccrued   = "CommissionAccrued"
	EventTypeCommissionCancelled = "CommissionCancelled"
)

// ReceivableCreatedEvent is published when a client is charged on account
type ReceivableCreatedEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID       `json:"client_id"`
	SaleID   *uuid.UUID      `json:"sale_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

// ReceivablePaidEvent is published for every receipt
type ReceivablePaidEvent struct {
	shared.BaseDomainEvent
	ClientID    uuid.UUID       `json:"client_id"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Status      TitleStatus     `json:"status"`
}

// PayablePaidEvent is published for every payment to a supplier
type PayablePaidEvent struct {
	shared.BaseDomainEvent
	Category ExpenseCategory `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	PaidAt   time.Time       `json:"paid_at"`
}

// CommissionAccruedEvent is published when a sale earns its seller a commission
type CommissionAccruedEvent struct {
	shared.BaseDomainEvent
	SellerID  uuid.UUID       `json:"seller_id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	SaleTotal decimal.Decimal `json:"sale_total"`
	Amount    decimal.Decimal `json:"amount"`
	AccruedAt time.Time       `json:"accrued_at"`
}

// CommissionCancelledEvent is published when a commission is reversed
type CommissionCancelledEvent struct {
	shared.BaseDomainEvent
	SellerID  uuid.UUID       `json:"seller_id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	SaleTotal decimal.Decimal `json:"sale_total"`
	Amount    decimal.Decimal `json:"amount"`
	AccruedAt time.Time       `json:"accrued_at"`
}

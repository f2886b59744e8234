package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	EventTypeSaleCompleted = "SaleCompleted"
	EventTypeSaleCancelled = "SaleCancelled"
)

// SaleLine is the event form of a sale item
type SaleLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Cost      decimal.Decimal `json:"cost"`
}

// SaleSnapshot carries everything downstream consumers need, so that
// projections and financial handlers never read the sales tables.
type SaleSnapshot struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	Number        string          `json:"number"`
	ClientID      *uuid.UUID      `json:"client_id,omitempty"`
	SellerID      uuid.UUID       `json:"seller_id"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	CostTotal     decimal.Decimal `json:"cost_total"`
	CompletedAt   time.Time       `json:"completed_at"`
	Lines         []SaleLine      `json:"lines"`
}

// SaleCompletedEvent is published when a sale is closed at the POS
type SaleCompletedEvent struct {
	shared.BaseDomainEvent
	SaleSnapshot
}

// SaleCancelledEvent is published when a sale is voided
type SaleCancelledEvent struct {
	shared.BaseDomainEvent
	SaleSnapshot
	Reason      string    `json:"reason"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}
